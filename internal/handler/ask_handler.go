package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/covaposh/faqbot/internal/model"
	"github.com/covaposh/faqbot/internal/pkg/response"
	"github.com/covaposh/faqbot/internal/service"
)

type AskHandler struct {
	ask *service.AskService
}

func NewAskHandler(ask *service.AskService) *AskHandler {
	return &AskHandler{ask: ask}
}

type askRequest struct {
	Question  string   `json:"question"`
	TopK      *int     `json:"topK"`
	Threshold *float64 `json:"threshold"`
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", "")
		return
	}
	// nil means "not supplied" and selects the configured default; an
	// explicit out-of-range value clamps to the nearest bound instead.
	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
		if topK < 1 {
			topK = 1
		}
	}
	threshold := -1.0
	if req.Threshold != nil {
		threshold = *req.Threshold
		if threshold < 0 {
			threshold = 0
		}
	}
	answer, err := h.ask.Ask(c.Request.Context(), req.Question, topK, threshold)
	if err != nil {
		handleError(c, err)
		return
	}
	references := answer.References
	if references == nil {
		references = []model.Reference{}
	}
	response.Success(c, gin.H{
		"answer":     answer.Text,
		"references": references,
	})
}
