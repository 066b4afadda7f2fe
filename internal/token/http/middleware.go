package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	tokenDomain "github.com/allisson/natter/internal/token/domain"
	"github.com/allisson/natter/internal/token/store"
)

// bearerPrefix is matched case-insensitively.
const bearerPrefix = "bearer "

// RequestInfoMiddleware exposes the request method and query to the token stores, which
// evaluate macaroon caveats against them.
func RequestInfoMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := store.WithRequestInfo(c.Request.Context(), c.Request.Method, c.Request.URL.Query())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// bearerToken extracts the credential from an Authorization header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", tokenDomain.ErrMissingCredential
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", tokenDomain.ErrMalformedCredential
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", tokenDomain.ErrMalformedCredential
	}
	return token, nil
}
