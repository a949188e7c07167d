package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/covaposh/faqbot/internal/pkg/response"
	"github.com/covaposh/faqbot/internal/service"
)

type IngestHandler struct {
	ingest *service.IngestService
}

func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

type ingestRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

func (h *IngestHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", "")
		return
	}
	inserted, err := h.ingest.Ingest(c.Request.Context(), req.Source, req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"inserted": inserted})
}
