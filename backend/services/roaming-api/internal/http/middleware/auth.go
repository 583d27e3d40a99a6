package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
)

type contextKey string

const subjectKey contextKey = "subject"

// RequireBearer validates an HMAC signed JWT from the Authorization header
// and stores its subject in the request context.
func RequireBearer(secret string) routing.Middleware {
	return func(next routing.Handler) routing.Handler {
		return func(ctx context.Context, req *routing.Request) *routing.Response {
			authHeader := req.Header.Get("Authorization")
			if authHeader == "" {
				return unauthorized("Missing authorization header!")
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return unauthorized("Invalid authorization header!")
			}
			tokenStr := strings.TrimSpace(parts[1])
			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenInvalidClaims
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return unauthorized("Invalid token!")
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				return unauthorized("Token has no subject!")
			}

			return next(context.WithValue(ctx, subjectKey, subject), req)
		}
	}
}

// SubjectFromContext returns the authenticated subject.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok
}

func unauthorized(description string) *routing.Response {
	body, _ := json.Marshal(map[string]string{"description": description})
	return &routing.Response{
		Status:      http.StatusUnauthorized,
		Header:      http.Header{"WWW-Authenticate": {`Bearer realm="roaming-api"`}},
		ContentType: routing.ContentTypeJSON,
		Body:        body,
	}
}
