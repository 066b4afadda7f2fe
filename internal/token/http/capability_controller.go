package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/natter/internal/errors"
	"github.com/allisson/natter/internal/httputil"
	tokenDomain "github.com/allisson/natter/internal/token/domain"
	"github.com/allisson/natter/internal/token/http/dto"
	"github.com/allisson/natter/internal/token/store"
	customValidation "github.com/allisson/natter/internal/validation"
)

// AccessTokenParam is the query parameter carrying a capability credential.
const AccessTokenParam = "access_token"

// ResourcePrefix is the route prefix under which capability-guarded resources live.
// Minted capability paths are rooted here.
const ResourcePrefix = "/v1/resources"

// CapabilityController mints capability URIs and gates requests on the permissions they carry.
type CapabilityController struct {
	store         store.AuthenticatedStore[*tokenDomain.CapabilityClaim]
	defaultExpiry time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewCapabilityController creates a capability controller. A zero defaultExpiry mints
// capabilities that never expire unless the request asks for a lifetime.
func NewCapabilityController(
	capabilityStore store.AuthenticatedStore[*tokenDomain.CapabilityClaim],
	defaultExpiry time.Duration,
	logger *slog.Logger,
) *CapabilityController {
	return &CapabilityController{
		store:         capabilityStore,
		defaultExpiry: defaultExpiry,
		logger:        logger,
		now:           time.Now,
	}
}

// Mint stores a capability for path and returns the path with the credential appended as
// the access_token query parameter. A zero ttl mints a capability without expiry.
func (h *CapabilityController) Mint(
	ctx context.Context,
	path string,
	perms tokenDomain.Permissions,
	ttl time.Duration,
) (string, *tokenDomain.CapabilityClaim, error) {
	var expiry *time.Time
	if ttl > 0 {
		e := h.now().UTC().Add(ttl).Truncate(time.Second)
		expiry = &e
	}
	claim := tokenDomain.NewCapabilityClaim(path, perms, expiry)

	uri, err := h.mintClaim(ctx, claim, nil)
	if err != nil {
		return "", nil, err
	}
	return uri, claim, nil
}

func (h *CapabilityController) mintClaim(
	ctx context.Context,
	claim *tokenDomain.CapabilityClaim,
	caveats []string,
) (string, error) {
	var tokenID string
	var err error
	if caveatStore, ok := h.store.(store.CaveatStore[*tokenDomain.CapabilityClaim]); ok && len(caveats) > 0 {
		tokenID, err = caveatStore.CreateWithCaveats(ctx, claim, caveats)
	} else {
		tokenID, err = h.store.Create(ctx, claim)
	}
	if err != nil {
		return "", apperrors.Wrap(err, "failed to mint capability")
	}

	u := url.URL{
		Path:     claim.Path,
		RawQuery: url.Values{AccessTokenParam: []string{tokenID}}.Encode(),
	}
	return u.String(), nil
}

// LookupPermissions is a filter that resolves the access_token query parameter into the
// permission set of the request. The capability applies only when its path equals the
// request path exactly; otherwise the request continues with no permissions.
func (h *CapabilityController) LookupPermissions(c *gin.Context) {
	tokenID := c.Query(AccessTokenParam)
	if tokenID == "" {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	claim, err := h.store.Read(ctx, tokenID)
	if err != nil {
		if apperrors.Is(err, tokenDomain.ErrTokenNotFound) {
			h.logger.Debug("capability token did not resolve")
			c.Next()
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if claim.Path != c.Request.URL.Path {
		h.logger.Debug("capability path mismatch", slog.String("path", c.Request.URL.Path))
		c.Next()
		return
	}

	c.Request = c.Request.WithContext(WithPermissions(ctx, claim.Permissions))
	c.Next()
}

// RequirePermission returns a filter that applies to requests with the given method only and
// halts them with 403 unless the resolved permissions include every required permission.
func (h *CapabilityController) RequirePermission(method string, required tokenDomain.Permissions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(c.Request.Method, method) {
			c.Next()
			return
		}

		perms, _ := GetPermissions(c.Request.Context())
		if !perms.Has(required) {
			h.logger.Debug("insufficient permissions",
				slog.String("method", c.Request.Method),
				slog.String("required", required.String()),
				slog.String("granted", perms.String()),
			)
			httputil.HandleErrorGin(c, tokenDomain.ErrInsufficientPermissions, h.logger)
			return
		}
		c.Next()
	}
}

// MintHandler mints a capability for a guarded resource.
// POST /v1/capabilities - Requires authentication.
// Returns 201 Created with the capability URI.
func (h *CapabilityController) MintHandler(c *gin.Context) {
	var req dto.MintCapabilityRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	perms, err := tokenDomain.ParsePermissions(req.Permissions)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	ttl := h.defaultExpiry
	if req.ExpiresIn > 0 {
		ttl = time.Duration(req.ExpiresIn) * time.Second
	}

	uri, claim, err := h.Mint(c.Request.Context(), ResourcePrefix+req.Path, perms, ttl)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCapabilityToResponse(uri, claim))
}

// ShareHandler derives a new capability from a capability URI held by the caller. The new
// capability covers the same path and cannot grant permissions the held one lacks. It keeps
// every caveat of the held credential, so it can never outlive it.
// POST /v1/capabilities/share - Returns 201 Created with the derived capability URI.
func (h *CapabilityController) ShareHandler(c *gin.Context) {
	var req dto.ShareCapabilityRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ctx := c.Request.Context()
	held, heldID, err := h.resolveURI(ctx, req.URI)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var caveats []string
	if caveatStore, ok := h.store.(store.CaveatStore[*tokenDomain.CapabilityClaim]); ok {
		caveats, err = caveatStore.Caveats(heldID)
		if err != nil {
			httputil.HandleErrorGin(c, tokenDomain.ErrInsufficientPermissions, h.logger)
			return
		}
	}

	perms := held.Permissions
	if req.Permissions != "" {
		perms, err = tokenDomain.ParsePermissions(req.Permissions)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
	}
	if !held.Permissions.Has(perms) {
		httputil.HandleErrorGin(c, tokenDomain.ErrInsufficientPermissions, h.logger)
		return
	}

	expiry := held.Expiry
	if e, ok := store.EarliestExpiry(caveats); ok && (expiry == nil || e.Before(*expiry)) {
		expiry = &e
	}
	if req.ExpiresIn > 0 {
		e := h.now().UTC().Add(time.Duration(req.ExpiresIn) * time.Second).Truncate(time.Second)
		if expiry == nil || e.Before(*expiry) {
			expiry = &e
		}
	}

	claim := tokenDomain.NewCapabilityClaim(held.Path, perms, expiry)
	uri, err := h.mintClaim(ctx, claim, caveats)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCapabilityToResponse(uri, claim))
}

// RevokeHandler revokes the capability carried by a URI.
// DELETE /v1/capabilities - Returns 200 OK with an empty object.
func (h *CapabilityController) RevokeHandler(c *gin.Context) {
	var req dto.RevokeCapabilityRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	_, tokenID, err := parseCapabilityURI(req.URI)
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

// ResourceHandler answers requests that passed the permission gates with the access granted.
// GET|POST|PUT|DELETE /v1/resources/*path
func (h *CapabilityController) ResourceHandler(c *gin.Context) {
	perms, _ := GetPermissions(c.Request.Context())

	c.JSON(http.StatusOK, dto.ResourceResponse{
		Path:        strings.TrimPrefix(c.Request.URL.Path, ResourcePrefix),
		Method:      c.Request.Method,
		Permissions: perms.String(),
	})
}

// resolveURI reads the capability carried by uri and checks that it was minted for the
// path of the uri. It returns the claim and the credential. A capability that does not
// resolve is reported as forbidden.
func (h *CapabilityController) resolveURI(
	ctx context.Context,
	uri string,
) (*tokenDomain.CapabilityClaim, string, error) {
	path, tokenID, err := parseCapabilityURI(uri)
	if err != nil {
		return nil, "", err
	}

	claim, err := h.store.Read(ctx, tokenID)
	if err != nil {
		if apperrors.Is(err, tokenDomain.ErrTokenNotFound) {
			return nil, "", tokenDomain.ErrInsufficientPermissions
		}
		return nil, "", err
	}

	if claim.Path != path {
		return nil, "", apperrors.Wrap(apperrors.ErrInvalidInput, "capability does not match uri path")
	}
	return claim, tokenID, nil
}

func parseCapabilityURI(uri string) (string, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", tokenDomain.ErrMalformedCredential
	}

	tokenID := u.Query().Get(AccessTokenParam)
	if tokenID == "" {
		return "", "", tokenDomain.ErrMissingCredential
	}
	return u.Path, tokenID, nil
}
