package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, role string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Subject: "user1",
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	return signed
}

func authRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", Auth(testSecret, roles...), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doAuth(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, doAuth(authRouter(), "").Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, doAuth(authRouter(), "Bearer garbage").Code)
}

func TestAuth_ValidToken(t *testing.T) {
	token := signToken(t, "admin")
	assert.Equal(t, http.StatusOK, doAuth(authRouter(), "Bearer "+token).Code)
}

func TestAuth_RoleEnforcement(t *testing.T) {
	admin := signToken(t, "admin")
	viewer := signToken(t, "viewer")

	r := authRouter("admin", "organization")
	assert.Equal(t, http.StatusOK, doAuth(r, "Bearer "+admin).Code)
	assert.Equal(t, http.StatusForbidden, doAuth(r, "Bearer "+viewer).Code)
}

func TestAuth_WrongSecret(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "admin"})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, doAuth(authRouter(), "Bearer "+signed).Code)
}
