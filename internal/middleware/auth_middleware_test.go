package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-access-secret-key-123456789"

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(testSecret, time.Hour)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()

	userID := uuid.New()
	agencyID := uuid.New()
	token, err := jwtService.GenerateAccessToken(userID, "agency_manager", &agencyID)
	require.NoError(t, err)

	router.GET("/protected", AuthMiddleware(jwtService, quietLogger()), func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		require.True(t, exists)
		c.JSON(http.StatusOK, gin.H{
			"user_id":   userCtx.UserID,
			"role":      userCtx.Role,
			"agency_id": userCtx.AgencyID,
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, userID.String(), body["user_id"])
	assert.Equal(t, "agency_manager", body["role"])
	assert.Equal(t, agencyID.String(), body["agency_id"])
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	jwtService := setupTestJWTService()
	expired := jwt.NewService(testSecret, -time.Minute)
	otherSecret := jwt.NewService("a-completely-different-secret-value", time.Hour)

	expiredToken, err := expired.GenerateAccessToken(uuid.New(), "agency_staff", nil)
	require.NoError(t, err)
	foreignToken, err := otherSecret.GenerateAccessToken(uuid.New(), "agency_staff", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "MISSING_AUTH_HEADER"},
		{"basic auth", "Basic dXNlcjpwYXNz", "INVALID_AUTH_FORMAT"},
		{"empty bearer", "Bearer   ", "INVALID_AUTH_FORMAT"},
		{"garbage token", "Bearer not.a.token", "INVALID_TOKEN"},
		{"expired token", "Bearer " + expiredToken, "TOKEN_EXPIRED"},
		{"wrong secret", "Bearer " + foreignToken, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/protected", AuthMiddleware(jwtService, quietLogger()), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, decodeBody(t, w)["code"])
		})
	}
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, exists := GetUserContext(c)
	assert.False(t, exists)

	c.Set(UserContextKey, "not a user context")
	_, exists = GetUserContext(c)
	assert.False(t, exists)

	want := UserContext{UserID: uuid.New(), Role: "superuser"}
	c.Set(UserContextKey, want)
	got, exists := GetUserContext(c)
	assert.True(t, exists)
	assert.Equal(t, want, got)
}

type stubResolver struct {
	principal models.Principal
	err       error
	calls     int
}

func (s *stubResolver) Resolve(_ context.Context, userID uuid.UUID, role string, agencyID *uuid.UUID) (models.Principal, error) {
	s.calls++
	if s.err != nil {
		return models.Principal{}, s.err
	}
	p := s.principal
	p.UserID = userID
	return p, nil
}

func principalRouter(resolver PrincipalResolver, handlers ...gin.HandlerFunc) *gin.Engine {
	router := setupTestRouter()
	chain := []gin.HandlerFunc{
		func(c *gin.Context) {
			c.Set(UserContextKey, UserContext{UserID: uuid.New(), Role: "agency_staff"})
			c.Next()
		},
		PrincipalMiddleware(resolver, quietLogger()),
	}
	chain = append(chain, handlers...)
	chain = append(chain, func(c *gin.Context) {
		p, exists := GetPrincipal(c)
		if !exists {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": p.Role})
	})
	router.GET("/protected", chain...)
	return router
}

func serve(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	return w
}

func TestPrincipalMiddleware(t *testing.T) {
	t.Run("Resolved", func(t *testing.T) {
		resolver := &stubResolver{principal: models.Principal{Role: models.RoleAgencyStaff}}
		w := serve(principalRouter(resolver))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "agency_staff", decodeBody(t, w)["role"])
		assert.Equal(t, 1, resolver.calls)
	})

	t.Run("Inactive Account", func(t *testing.T) {
		resolver := &stubResolver{principal: models.Principal{Role: models.RoleUnauthenticated}}
		w := serve(principalRouter(resolver))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "ACCOUNT_INACTIVE", decodeBody(t, w)["code"])
	})

	t.Run("Resolver Fault", func(t *testing.T) {
		resolver := &stubResolver{err: errors.New("database unavailable")}
		w := serve(principalRouter(resolver))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "PRINCIPAL_RESOLUTION_FAILED", decodeBody(t, w)["code"])
	})

	t.Run("Missing User Context", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/protected", PrincipalMiddleware(&stubResolver{}, quietLogger()), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := serve(router)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("Allowed", func(t *testing.T) {
		resolver := &stubResolver{principal: models.Principal{Role: models.RoleSuperuser}}
		w := serve(principalRouter(resolver, RequireRole(models.RoleSuperuser)))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Forbidden", func(t *testing.T) {
		resolver := &stubResolver{principal: models.Principal{Role: models.RoleAgencyManager}}
		w := serve(principalRouter(resolver, RequireRole(models.RoleSuperuser)))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "INSUFFICIENT_PERMISSIONS", decodeBody(t, w)["code"])
	})

	t.Run("No Principal", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/protected", RequireRole(models.RoleSuperuser), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := serve(router)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
