package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheOksigen/autopart-backend/internal/middleware"
	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/repository"
	"github.com/TheOksigen/autopart-backend/internal/testutil"
)

const testSecret = "test-secret"

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	users := repository.NewUserRepository(testutil.NewTestDB(t))
	h := NewAuthHandler(users, testSecret, time.Hour, quietLogger())

	router := setupTestRouter()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	router.GET("/auth/verify", middleware.AuthMiddleware([]byte(testSecret)), h.Verify)
	return router
}

func TestAuth_RegisterLoginVerify(t *testing.T) {
	router := newAuthRouter(t)

	w := performRequest(router, http.MethodPost, "/auth/register", map[string]string{
		"email":    "Parts@Example.com",
		"password": "secret123",
		"name":     "Parts Desk",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var registered models.AuthResponse
	decodeBody(t, w, &registered)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, models.RoleUser, registered.User.Role)
	assert.NotContains(t, w.Body.String(), "secret123")

	w = performRequest(router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "parts@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var loggedIn models.AuthResponse
	decodeBody(t, w, &loggedIn)

	claims, err := middleware.ParseToken([]byte(testSecret), loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID.String(), claims.UserID)

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+loggedIn.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var verified struct {
		User models.User `json:"user"`
	}
	decodeBody(t, rec, &verified)
	assert.Equal(t, registered.User.ID, verified.User.ID)
}

func TestAuth_RegisterDuplicate(t *testing.T) {
	router := newAuthRouter(t)
	body := map[string]string{"email": "dup@example.com", "password": "secret123"}

	require.Equal(t, http.StatusCreated, performRequest(router, http.MethodPost, "/auth/register", body).Code)

	w := performRequest(router, http.MethodPost, "/auth/register", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "USER_EXISTS", decodeError(t, w).Code)
}

func TestAuth_RegisterValidation(t *testing.T) {
	router := newAuthRouter(t)

	w := performRequest(router, http.MethodPost, "/auth/register", map[string]string{"email": "nope", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
}

func TestAuth_LoginInvalidCredentials(t *testing.T) {
	router := newAuthRouter(t)
	performRequest(router, http.MethodPost, "/auth/register", map[string]string{"email": "a@example.com", "password": "secret123"})

	w := performRequest(router, http.MethodPost, "/auth/login", map[string]string{"email": "a@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, w).Code)

	w = performRequest(router, http.MethodPost, "/auth/login", map[string]string{"email": "ghost@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_VerifyWithoutToken(t *testing.T) {
	router := newAuthRouter(t)

	w := performRequest(router, http.MethodGet, "/auth/verify", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
