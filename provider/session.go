package provider

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lumenlabs/checkout-go/auth"
)

// userCache memoizes the wallet identity parsed from the session's ID token.
// The cached entry is keyed on the token subject; when the session starts
// returning a different subject (re-login as someone else) the stale entry
// is dropped. Concurrent first lookups collapse into one parse.
type userCache struct {
	mu    sync.RWMutex
	token string
	user  auth.User
	group singleflight.Group
}

func newUserCache() *userCache {
	return &userCache{}
}

// Get returns the wallet identity for the session's current credentials.
func (c *userCache) Get(ctx context.Context, session auth.Session) (auth.User, error) {
	tokens, err := session.Tokens(ctx)
	if err != nil {
		return auth.User{}, err
	}

	c.mu.RLock()
	if c.token == tokens.IDToken && c.token != "" {
		user := c.user
		c.mu.RUnlock()
		return user, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do(tokens.IDToken, func() (any, error) {
		user, err := auth.UserFromIDToken(tokens.IDToken)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.token != "" && c.user.Subject != user.Subject {
			// Subject changed: drop the previous identity entirely.
			c.user = auth.User{}
		}
		c.token = tokens.IDToken
		c.user = user
		c.mu.Unlock()

		return user, nil
	})
	if err != nil {
		return auth.User{}, err
	}

	return result.(auth.User), nil
}

// Invalidate clears the cached identity, forcing a re-parse on next use.
func (c *userCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.user = auth.User{}
	c.mu.Unlock()
}

// Logout drops the provider's cached wallet identity. Call it when the
// hosting application ends or switches the user session.
func (p *Provider) Logout() {
	p.users.Invalidate()
	p.log.Info("wallet session cleared")
}
