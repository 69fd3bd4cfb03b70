package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tendant/stay-concierge/internal/httputil"
)

type contextKey string

// ChannelKey is the context key for the authenticated channel adapter name.
const ChannelKey contextKey = "channel"

// ErrInvalidToken is returned for any bearer token that fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// AdapterClaims are the claims a channel adapter presents on every webhook call.
type AdapterClaims struct {
	Channel string `json:"channel"`
	jwt.RegisteredClaims
}

// WebhookAuth verifies HS256 bearer tokens issued to channel adapters.
type WebhookAuth struct {
	secret []byte
	issuer string
}

// NewWebhookAuth creates a verifier for the shared secret and expected issuer.
func NewWebhookAuth(secret []byte, issuer string) *WebhookAuth {
	return &WebhookAuth{secret: secret, issuer: issuer}
}

// Issue signs a token for an adapter. A zero ttl issues a token without expiry.
func (a *WebhookAuth) Issue(channel string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdapterClaims{
		Channel: channel,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   a.issuer,
			Subject:  channel,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate parses and verifies a token.
func (a *WebhookAuth) Validate(tokenString string) (*AdapterClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdapterClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	}, jwt.WithIssuer(a.issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AdapterClaims)
	if !ok || !token.Valid || claims.Channel == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware rejects requests without a valid adapter token.
func (a *WebhookAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tokenString string
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			httputil.Error(w, http.StatusUnauthorized, "missing authorization")
			return
		}

		claims, err := a.Validate(tokenString)
		if err != nil {
			httputil.Error(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ChannelKey, claims.Channel)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetChannel extracts the adapter's channel name from the request context.
func GetChannel(ctx context.Context) (string, bool) {
	channel, ok := ctx.Value(ChannelKey).(string)
	return channel, ok
}
