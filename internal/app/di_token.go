package app

import (
	"context"
	"fmt"

	"github.com/allisson/natter/internal/config"
	tokenDomain "github.com/allisson/natter/internal/token/domain"
	tokenHTTP "github.com/allisson/natter/internal/token/http"
	tokenRepository "github.com/allisson/natter/internal/token/repository"
	tokenService "github.com/allisson/natter/internal/token/service"
	tokenStore "github.com/allisson/natter/internal/token/store"
	tokenUsecase "github.com/allisson/natter/internal/token/usecase"
)

// Store kinds used as metric and sweep labels.
const (
	sessionKind    = "session"
	capabilityKind = "capability"
)

type sessionTokenRepository interface {
	tokenStore.Repository[*tokenDomain.SessionClaim]
	tokenUsecase.ExpiredTokenRepository
}

type capabilityTokenRepository interface {
	tokenStore.Repository[*tokenDomain.CapabilityClaim]
	tokenUsecase.ExpiredTokenRepository
}

// TokenKey returns the shared integrity key, decrypted through KMS when KMS_KEY_URI is set.
func (c *Container) TokenKey() ([]byte, error) {
	var err error
	c.tokenKeyInit.Do(func() {
		c.tokenKey, err = c.initTokenKey()
		if err != nil {
			c.initErrors["tokenKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenKey"]; exists {
		return nil, storedErr
	}
	return c.tokenKey, nil
}

// SessionStore returns the session token store for the configured persistence model.
func (c *Container) SessionStore() (tokenStore.AuthenticatedStore[*tokenDomain.SessionClaim], error) {
	var err error
	c.sessionStoreInit.Do(func() {
		c.sessionStore, err = c.initSessionStore()
		if err != nil {
			c.initErrors["sessionStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionStore"]; exists {
		return nil, storedErr
	}
	return c.sessionStore, nil
}

// CapabilityStore returns the capability token store for the configured persistence model.
func (c *Container) CapabilityStore() (tokenStore.AuthenticatedStore[*tokenDomain.CapabilityClaim], error) {
	var err error
	c.capabilityStoreInit.Do(func() {
		c.capabilityStore, err = c.initCapabilityStore()
		if err != nil {
			c.initErrors["capabilityStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["capabilityStore"]; exists {
		return nil, storedErr
	}
	return c.capabilityStore, nil
}

// SessionController returns the login, logout and session validation controller.
func (c *Container) SessionController() (*tokenHTTP.SessionController, error) {
	var err error
	c.sessionControllerInit.Do(func() {
		c.sessionController, err = c.initSessionController()
		if err != nil {
			c.initErrors["sessionController"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionController"]; exists {
		return nil, storedErr
	}
	return c.sessionController, nil
}

// CapabilityController returns the capability mint, lookup and gate controller.
func (c *Container) CapabilityController() (*tokenHTTP.CapabilityController, error) {
	var err error
	c.capabilityControllerInit.Do(func() {
		c.capabilityController, err = c.initCapabilityController()
		if err != nil {
			c.initErrors["capabilityController"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["capabilityController"]; exists {
		return nil, storedErr
	}
	return c.capabilityController, nil
}

// CleanupUseCase returns the expired token cleanup use case.
func (c *Container) CleanupUseCase() (tokenUsecase.CleanupUseCase, error) {
	var err error
	c.cleanupUseCaseInit.Do(func() {
		c.cleanupUseCase, err = c.initCleanupUseCase()
		if err != nil {
			c.initErrors["cleanupUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cleanupUseCase"]; exists {
		return nil, storedErr
	}
	return c.cleanupUseCase, nil
}

// Sweeper returns the background expired token sweeper.
func (c *Container) Sweeper() (*tokenUsecase.Sweeper, error) {
	var err error
	c.sweeperInit.Do(func() {
		c.sweeper, err = c.initSweeper()
		if err != nil {
			c.initErrors["sweeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sweeper"]; exists {
		return nil, storedErr
	}
	return c.sweeper, nil
}

func (c *Container) sessionRepository() (sessionTokenRepository, error) {
	var err error
	c.sessionRepoInit.Do(func() {
		c.sessionRepo, err = c.initSessionRepository()
		if err != nil {
			c.initErrors["sessionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionRepo"]; exists {
		return nil, storedErr
	}
	return c.sessionRepo, nil
}

func (c *Container) capabilityRepository() (capabilityTokenRepository, error) {
	var err error
	c.capabilityRepoInit.Do(func() {
		c.capabilityRepo, err = c.initCapabilityRepository()
		if err != nil {
			c.initErrors["capabilityRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["capabilityRepo"]; exists {
		return nil, storedErr
	}
	return c.capabilityRepo, nil
}

func (c *Container) initTokenKey() ([]byte, error) {
	key, err := tokenService.NewKeyService().LoadKey(context.Background(), c.config.TokenKey, c.config.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to load token key: %w", err)
	}
	return key, nil
}

func (c *Container) initSessionRepository() (sessionTokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for session repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return tokenRepository.NewMySQLSessionRepository(db), nil
	case "postgres":
		return tokenRepository.NewPostgreSQLSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initCapabilityRepository() (capabilityTokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for capability repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return tokenRepository.NewMySQLCapabilityRepository(db), nil
	case "postgres":
		return tokenRepository.NewPostgreSQLCapabilityRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// storeKey derives the integrity key of one store kind from the configured token key.
func (c *Container) storeKey(kind string) ([]byte, error) {
	key, err := c.TokenKey()
	if err != nil {
		return nil, err
	}
	return tokenService.NewKeyService().DeriveKey(key, kind)
}

// secureStore wraps a confidential store in the configured integrity wrapper.
func secureStore[T any](
	integrity string,
	delegate tokenStore.ConfidentialStore[T],
	key []byte,
) (tokenStore.AuthenticatedStore[T], error) {
	switch integrity {
	case config.IntegrityHMAC:
		return tokenStore.WrapHMAC(delegate, key), nil
	case config.IntegrityMacaroon:
		return tokenStore.WrapMacaroon(delegate, key), nil
	default:
		return nil, fmt.Errorf("unsupported token integrity: %s", integrity)
	}
}

// authenticatedStore wraps a self-contained store in the configured integrity wrapper.
func authenticatedStore[T any](
	integrity string,
	delegate tokenStore.Store[T],
	key []byte,
) (tokenStore.AuthenticatedStore[T], error) {
	switch integrity {
	case config.IntegrityHMAC:
		return tokenStore.WrapHMACAuthenticated(delegate, key), nil
	case config.IntegrityMacaroon:
		return tokenStore.WrapMacaroonAuthenticated(delegate, key), nil
	default:
		return nil, fmt.Errorf("unsupported token integrity: %s", integrity)
	}
}

func (c *Container) initSessionStore() (tokenStore.AuthenticatedStore[*tokenDomain.SessionClaim], error) {
	key, err := c.storeKey(sessionKind)
	if err != nil {
		return nil, err
	}

	tokenMetrics, err := c.TokenMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get token metrics for session store: %w", err)
	}

	var secure tokenStore.AuthenticatedStore[*tokenDomain.SessionClaim]
	switch c.config.SessionStore {
	case config.StoreDatabase:
		repo, err := c.sessionRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get session repository for session store: %w", err)
		}
		persisted := tokenStore.NewPersistedStore[*tokenDomain.SessionClaim](repo, tokenService.NewTokenService())
		secure, err = secureStore(c.config.TokenIntegrity, persisted, key)
		if err != nil {
			return nil, err
		}

	case config.StoreSelfContained:
		selfContained := tokenStore.NewSelfContainedStore[*tokenDomain.SessionClaim](tokenStore.SessionCodec{})
		secure, err = authenticatedStore(c.config.TokenIntegrity, selfContained, key)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported session store: %s", c.config.SessionStore)
	}

	return tokenStore.WithMetrics(secure, tokenMetrics, sessionKind), nil
}

func (c *Container) initCapabilityStore() (tokenStore.AuthenticatedStore[*tokenDomain.CapabilityClaim], error) {
	key, err := c.storeKey(capabilityKind)
	if err != nil {
		return nil, err
	}

	tokenMetrics, err := c.TokenMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get token metrics for capability store: %w", err)
	}

	var secure tokenStore.AuthenticatedStore[*tokenDomain.CapabilityClaim]
	switch c.config.CapabilityStore {
	case config.StoreDatabase:
		repo, err := c.capabilityRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get capability repository for capability store: %w", err)
		}
		persisted := tokenStore.NewPersistedStore[*tokenDomain.CapabilityClaim](
			repo,
			tokenService.NewTokenService(),
		)
		secure, err = secureStore(c.config.TokenIntegrity, persisted, key)
		if err != nil {
			return nil, err
		}

	case config.StoreSelfContained:
		selfContained := tokenStore.NewSelfContainedStore[*tokenDomain.CapabilityClaim](
			tokenStore.CapabilityCodec{},
		)
		secure, err = authenticatedStore(c.config.TokenIntegrity, selfContained, key)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported capability store: %s", c.config.CapabilityStore)
	}

	return tokenStore.WithMetrics(secure, tokenMetrics, capabilityKind), nil
}

func (c *Container) initSessionController() (*tokenHTTP.SessionController, error) {
	sessionStore, err := c.SessionStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get session store for session controller: %w", err)
	}

	userUseCase, err := c.UserUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case for session controller: %w", err)
	}

	return tokenHTTP.NewSessionController(
		sessionStore,
		userUseCase,
		c.config.SessionExpiration,
		c.Logger(),
	), nil
}

func (c *Container) initCapabilityController() (*tokenHTTP.CapabilityController, error) {
	capabilityStore, err := c.CapabilityStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get capability store for capability controller: %w", err)
	}

	return tokenHTTP.NewCapabilityController(
		capabilityStore,
		c.config.CapabilityExpiration,
		c.Logger(),
	), nil
}

func (c *Container) initCleanupUseCase() (tokenUsecase.CleanupUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for cleanup use case: %w", err)
	}

	tokenMetrics, err := c.TokenMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get token metrics for cleanup use case: %w", err)
	}

	// Self-contained tokens carry their own expiry and have no rows to sweep.
	var targets []tokenUsecase.SweepTarget
	if c.config.SessionStore == config.StoreDatabase {
		sessionRepo, err := c.sessionRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get session repository for cleanup use case: %w", err)
		}
		targets = append(targets, tokenUsecase.SweepTarget{Kind: sessionKind, Repo: sessionRepo})
	}
	if c.config.CapabilityStore == config.StoreDatabase {
		capabilityRepo, err := c.capabilityRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get capability repository for cleanup use case: %w", err)
		}
		targets = append(targets, tokenUsecase.SweepTarget{Kind: capabilityKind, Repo: capabilityRepo})
	}

	return tokenUsecase.NewCleanupUseCase(txManager, tokenMetrics, c.Logger(), targets...), nil
}

func (c *Container) initSweeper() (*tokenUsecase.Sweeper, error) {
	useCase, err := c.CleanupUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get cleanup use case for sweeper: %w", err)
	}
	return tokenUsecase.NewSweeper(useCase, c.config.TokenSweepInterval, c.Logger()), nil
}
