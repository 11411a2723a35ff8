// Package session obtains an authenticated bank session for the current
// installation, reusing persisted state where the contract allows it.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/Nastunika/ZenPlugins/src/bankapi"
	"github.com/Nastunika/ZenPlugins/src/identity"
	"github.com/Nastunika/ZenPlugins/src/logger"
	"github.com/Nastunika/ZenPlugins/src/models"
	"github.com/Nastunika/ZenPlugins/src/storage"
	"github.com/patrickmn/go-cache"
)

// Provider hands out authenticated sessions. It owns the persisted auth
// record for the duration of a call and saves it back before returning.
type Provider struct {
	store       storage.PersistentStore
	api         bankapi.API
	recentLogin *cache.Cache
}

func NewProvider(store storage.PersistentStore, api bankapi.API) *Provider {
	return &Provider{
		store:       store,
		api:         api,
		recentLogin: cache.New(10*time.Minute, 30*time.Minute),
	}
}

// GetSession returns a session with a valid API handle, logging in when the
// persisted one cannot be reused. The resulting session is persisted before
// returning. A malformed PIN fails before any network call.
func (p *Provider) GetSession(ctx context.Context, creds models.Credentials, device models.DeviceIdentity) (*models.AuthSession, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", bankapi.ErrInvalidCredentials, err)
	}

	auth, err := identity.LoadSession(p.store)
	if err != nil {
		return nil, err
	}

	if auth != nil && auth.API != nil {
		// The renew endpoint rejects handles older than its own idle
		// window, which is shorter than any realistic scrape interval, so
		// a stored handle is dropped unconditionally and a fresh login is
		// forced every run.
		auth.API = nil
	}

	if !auth.Authenticated() {
		if _, seen := p.recentLogin.Get(creds.Login); seen {
			logger.L.Warn("Repeated login for the same user within one process", "login", creds.Login)
		}
		auth, err = p.api.Login(ctx, creds.Login, creds.PIN, auth, device)
		if err != nil {
			return nil, fmt.Errorf("login failed: %w", err)
		}
		p.recentLogin.Set(creds.Login, time.Now(), cache.DefaultExpiration)
	}

	if err := identity.SaveSession(p.store, auth); err != nil {
		return nil, err
	}
	return auth, nil
}
