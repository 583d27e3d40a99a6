package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func guarded(t *testing.T, authorization string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var subject string
	table := routing.NewTable(zap.NewNop())
	table.Handle(routing.CREATE, "/RNs/{networkId}", func(ctx context.Context, _ *routing.Request) *routing.Response {
		subject, _ = SubjectFromContext(ctx)
		return &routing.Response{Status: http.StatusCreated}
	}, RequireBearer(secret))

	req := httptest.NewRequest("CREATE", "/RNs/Prod", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, req)
	return rec, subject
}

func TestRequireBearerAcceptsValidToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	rec, subject := guarded(t, "Bearer "+token)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "admin", subject)
}

func TestRequireBearerRejects(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "admin"})
	noSubject := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"role": "admin"})

	tests := []struct {
		name          string
		authorization string
		description   string
	}{
		{"missing", "", "Missing authorization header!"},
		{"basic auth", "Basic YWRtaW46YWRtaW4=", "Invalid authorization header!"},
		{"expired", "Bearer " + expired, "Invalid token!"},
		{"wrong key", "Bearer " + wrongKey, "Invalid token!"},
		{"no subject", "Bearer " + noSubject, "Token has no subject!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, subject := guarded(t, tt.authorization)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"description":"`+tt.description+`"}`, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			assert.Empty(t, subject)
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		RecoveryMiddleware(zap.NewNop()), LoggingMiddleware(zap.NewNop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"description":"Internal server error!"}`, rec.Body.String())
}
