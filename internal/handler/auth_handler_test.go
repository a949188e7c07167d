package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/covaposh/faqbot/internal/config"
	"github.com/covaposh/faqbot/internal/middleware"
	"github.com/covaposh/faqbot/internal/pkg/jwt"
	"github.com/covaposh/faqbot/internal/pkg/password"
	"github.com/covaposh/faqbot/internal/service"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := password.Hash("rahasia-admin")
	require.NoError(t, err)
	auth := service.NewAuthService(config.AdminConfig{
		Username:     "admin",
		PasswordHash: hash,
		JWTSecret:    "test-secret",
		JWTTTLHours:  1,
	})
	router := gin.New()
	router.POST("/auth/login", NewAuthHandler(auth).Login)
	router.POST("/ingest", middleware.JWTAuth([]byte("test-secret")), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestAuthLogin_IssuesValidToken(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/login", `{"username":"admin","password":"rahasia-admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		OK    bool   `json:"ok"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.OK)

	claims, err := jwt.ParseToken(body.Token, []byte("test-secret"))
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Username)

	// the issued token opens the admin route
	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)
}

func TestAuthLogin_WrongPassword(t *testing.T) {
	router := newAuthRouter(t)
	rec := postJSON(router, "/auth/login", `{"username":"admin","password":"salah"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthLogin_UnknownUser(t *testing.T) {
	router := newAuthRouter(t)
	rec := postJSON(router, "/auth/login", `{"username":"other","password":"rahasia-admin"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_RejectsMissingOrBadToken(t *testing.T) {
	router := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
