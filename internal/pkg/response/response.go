package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The wire envelope is {ok:true, ...fields} on success and
// {ok:false, error, stage?} on failure. Callers of the public API key off
// the ok flag, so every payload goes through these two helpers.

func Success(c *gin.Context, data gin.H) {
	payload := gin.H{"ok": true}
	for k, v := range data {
		payload[k] = v
	}
	c.JSON(http.StatusOK, payload)
}

func Error(c *gin.Context, status int, message string, stage string) {
	payload := gin.H{"ok": false, "error": message}
	if stage != "" {
		payload["stage"] = stage
	}
	c.JSON(status, payload)
}
