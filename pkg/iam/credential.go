package iam

import (
	"sync"

	"github.com/Halderpritam123/go-common/pkg/config"
)

// ServiceCredential holds the process-wide service identity: the secret key
// the service was provisioned with and the service token most recently
// fetched from IAM. It is the single piece of shared mutable state in this
// package.
//
// Readers always observe a complete token value; writers replace it
// atomically. Concurrent refetches are tolerated rather than prevented:
// when several requests race through the 401 path, each refetch just
// overwrites the token with an equally fresh one. Only [TokenManager]
// writes the token.
type ServiceCredential struct {
	mu        sync.RWMutex
	token     string
	secretKey config.Secret
}

// NewServiceCredential creates a credential with the given application
// secret and no token. The token is populated by
// [TokenManager.FetchServiceToken].
func NewServiceCredential(secretKey config.Secret) *ServiceCredential {
	return &ServiceCredential{secretKey: secretKey}
}

// Token returns the current service token, or an empty string when no token
// has been fetched yet.
func (c *ServiceCredential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SecretKey returns the application secret the service authenticates with.
func (c *ServiceCredential) SecretKey() config.Secret {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.secretKey
}

// setToken atomically replaces the service token. Unexported so that only
// this package's TokenManager can write it.
func (c *ServiceCredential) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}
