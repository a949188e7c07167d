package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	apperr "github.com/covaposh/faqbot/internal/pkg/errors"
	"github.com/covaposh/faqbot/internal/pkg/response"
)

// handleError maps the pipeline error taxonomy onto the wire envelope.
// Dependency failures keep their stage so operators can see which step of
// the pipeline broke.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	stage := apperr.StageOf(err)
	switch {
	case apperr.IsCallerError(err):
		response.Error(c, http.StatusBadRequest, err.Error(), stage)
	case errors.Is(err, apperr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "unauthorized", stage)
	case errors.Is(err, apperr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, "too many requests", stage)
	default:
		response.Error(c, http.StatusInternalServerError, err.Error(), stage)
	}
}
