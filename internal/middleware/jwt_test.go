package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/classmap/classmap-api/internal/models"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (v *validatorStub) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	v.token = tokenString
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func runJWT(t *testing.T, auth tokenValidator, header string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/session", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c.Request = req
	JWT(auth)(c)
	return w, c
}

func TestJWTSetsClaims(t *testing.T) {
	stub := &validatorStub{claims: &models.JWTClaims{UserID: "instr-1", Role: models.RoleInstructor}}
	w, c := runJWT(t, stub, "Bearer token-value")

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "token-value", stub.token)
	value, exists := c.Get(ContextUserKey)
	require.True(t, exists)
	require.Equal(t, "instr-1", value.(*models.JWTClaims).UserID)
}

func TestJWTMissingHeader(t *testing.T) {
	w, _ := runJWT(t, &validatorStub{}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMalformedHeader(t *testing.T) {
	w, _ := runJWT(t, &validatorStub{}, "Token abc")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTInvalidToken(t *testing.T) {
	w, _ := runJWT(t, &validatorStub{err: appErrors.ErrUnauthorized}, "Bearer bad")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
