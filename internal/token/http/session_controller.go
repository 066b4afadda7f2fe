package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/natter/internal/errors"
	"github.com/allisson/natter/internal/httputil"
	tokenDomain "github.com/allisson/natter/internal/token/domain"
	"github.com/allisson/natter/internal/token/http/dto"
	"github.com/allisson/natter/internal/token/store"
)

const (
	basicChallenge   = `Basic realm="natter", charset="UTF-8"`
	bearerChallenge  = `Bearer`
	expiredChallenge = `Bearer error="invalid_token",error_description="Expired"`
)

// Authenticator verifies username and password credentials and returns the principal.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
}

// SessionController mints, validates and revokes session tokens.
type SessionController struct {
	store         store.AuthenticatedStore[*tokenDomain.SessionClaim]
	authenticator Authenticator
	expiration    time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewSessionController creates a session controller. Sessions minted at login expire after
// the given duration.
func NewSessionController(
	sessionStore store.AuthenticatedStore[*tokenDomain.SessionClaim],
	authenticator Authenticator,
	expiration time.Duration,
	logger *slog.Logger,
) *SessionController {
	return &SessionController{
		store:         sessionStore,
		authenticator: authenticator,
		expiration:    expiration,
		logger:        logger,
		now:           time.Now,
	}
}

// AuthenticateUser is a filter that resolves HTTP Basic credentials into a principal.
// Requests without Basic credentials pass through untouched.
func (h *SessionController) AuthenticateUser(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if !ok {
		c.Next()
		return
	}

	principal, err := h.authenticator.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			c.Header("WWW-Authenticate", basicChallenge)
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
	c.Next()
}

// ValidateToken is a filter that resolves a bearer session token into the request principal
// and attributes. Requests without a bearer token, or with one that does not resolve, pass
// through unauthenticated. An expired session is rejected with 401 and an explicit challenge.
func (h *SessionController) ValidateToken(c *gin.Context) {
	tokenID, err := bearerToken(c.GetHeader("Authorization"))
	if err != nil {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	claim, err := h.store.Read(ctx, tokenID)
	switch {
	case err == nil:
	case apperrors.Is(err, tokenDomain.ErrTokenExpired):
		h.rejectExpired(c)
		return
	case apperrors.Is(err, tokenDomain.ErrTokenNotFound):
		h.logger.Debug("session token did not resolve")
		c.Next()
		return
	default:
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if tokenDomain.IsExpired(claim, h.now()) {
		h.rejectExpired(c)
		return
	}

	ctx = WithPrincipal(ctx, claim.Principal)
	ctx = WithAttributes(ctx, claim.Attributes)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// RequireAuthentication halts with 401 unless an earlier filter attached a principal.
func (h *SessionController) RequireAuthentication(c *gin.Context) {
	if _, ok := GetPrincipal(c.Request.Context()); !ok {
		c.Header("WWW-Authenticate", bearerChallenge)
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}
	c.Next()
}

// LoginHandler mints a session token for the authenticated principal.
// POST /v1/sessions - Requires HTTP Basic authentication.
// Returns 201 Created with the token and its expiration time.
func (h *SessionController) LoginHandler(c *gin.Context) {
	ctx := c.Request.Context()
	principal, ok := GetPrincipal(ctx)
	if !ok {
		c.Header("WWW-Authenticate", basicChallenge)
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	now := h.now().UTC()
	claim := tokenDomain.NewSessionClaim(principal, now.Add(h.expiration).Truncate(time.Second))
	claim.Attributes.Set("auth_time", now.Format(time.RFC3339))

	tokenID, err := h.store.Create(ctx, claim)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.LoginResponse{
		Token:     tokenID,
		ExpiresAt: claim.Expiry,
	})
}

// LogoutHandler revokes the bearer session token presented with the request.
// DELETE /v1/sessions - Returns 200 OK with an empty object, or 400 when the credential
// is missing or not a bearer token.
func (h *SessionController) LogoutHandler(c *gin.Context) {
	tokenID, err := bearerToken(c.GetHeader("Authorization"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := h.store.Revoke(c.Request.Context(), tokenID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// MeHandler describes the session attached to the request.
// GET /v1/sessions/me - Requires authentication.
func (h *SessionController) MeHandler(c *gin.Context) {
	ctx := c.Request.Context()
	principal, ok := GetPrincipal(ctx)
	if !ok {
		c.Header("WWW-Authenticate", bearerChallenge)
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	attributes, _ := GetAttributes(ctx)
	c.JSON(http.StatusOK, dto.MapSessionToResponse(principal, attributes))
}

func (h *SessionController) rejectExpired(c *gin.Context) {
	h.logger.Debug("session token expired")
	c.Header("WWW-Authenticate", expiredChallenge)
	c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.ErrorResponse{
		Error:   "invalid_token",
		Message: "The session token has expired",
	})
}
