package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kyznetsovserega/hopbarley-shop/internal/auth"
	"github.com/kyznetsovserega/hopbarley-shop/internal/owner"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/ctxmanage"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/logkey"
)

// SessionHeader carries the guest session token. The middleware echoes it
// back (minting one when absent) so anonymous shoppers keep their cart
// across requests.
const SessionHeader = "X-Session-Token"

type Mid struct {
	a *auth.Keys
}

func NewMid(a *auth.Keys) Mid {
	return Mid{a: a}
}

// Identify resolves the owner identity for the request. A valid bearer
// token always wins: the owner is then the authenticated user. Otherwise
// the owner is the guest session token.
func (m Mid) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := ctxmanage.GetTraceIdOfRequest(c)

		authHeader := c.Request.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok && m.a != nil {
			claims, err := m.a.ValidateToken(token)
			if err != nil {
				slog.Error("invalid bearer token",
					slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}

			ctx := owner.WithIdentity(c.Request.Context(), owner.User(claims.Subject))
			ctx = context.WithValue(ctx, auth.ClaimsKey, claims)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		sessionToken := c.Request.Header.Get(SessionHeader)
		if sessionToken == "" {
			sessionToken = uuid.NewString()
		}
		c.Header(SessionHeader, sessionToken)

		ctx := owner.WithIdentity(c.Request.Context(), owner.Guest(sessionToken))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireUser aborts requests whose owner is not an authenticated user.
func (m Mid) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := owner.FromContext(c.Request.Context())
		if !ok || !id.IsUser() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
