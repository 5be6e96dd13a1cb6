package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/stonixai/dashcore/password"
	"github.com/stonixai/dashcore/session"
	"github.com/stonixai/dashcore/token"
)

// DemoAccount is a built-in login for demonstrations and local runs.
type DemoAccount struct {
	Password string
	User     session.User
}

// DemoAccounts returns the stock administrator, operator and viewer logins.
func DemoAccounts() []DemoAccount {
	return []DemoAccount{
		{
			Password: "admin123",
			User: session.User{
				ID:          "1",
				Username:    "admin",
				Email:       "admin@company.com",
				Role:        "administrator",
				Permissions: []string{"read", "write", "delete", "manage_users", "system_config"},
			},
		},
		{
			Password: "operator123",
			User: session.User{
				ID:          "2",
				Username:    "operator",
				Email:       "operator@company.com",
				Role:        "operator",
				Permissions: []string{"read", "write", "acknowledge_alerts"},
			},
		},
		{
			Password: "viewer123",
			User: session.User{
				ID:          "3",
				Username:    "viewer",
				Email:       "viewer@company.com",
				Role:        "viewer",
				Permissions: []string{"read"},
			},
		},
	}
}

type account struct {
	user session.User
	hash string
}

// Directory authenticates against an in-process user table.
type Directory struct {
	hasher *password.Hasher
	tokens *token.Issuer

	mu       sync.RWMutex
	accounts map[string]account
	// decoy is verified for unknown usernames so both failure paths cost
	// one argon2 evaluation.
	decoy string
}

func NewDirectory(hasher *password.Hasher, tokens *token.Issuer) (*Directory, error) {
	if hasher == nil {
		return nil, errors.New("directory requires a password hasher")
	}
	if tokens == nil {
		tokens = token.NewIssuer()
	}
	decoy, err := hasher.Hash("decoy-password")
	if err != nil {
		return nil, err
	}
	return &Directory{
		hasher:   hasher,
		tokens:   tokens,
		accounts: make(map[string]account),
		decoy:    decoy,
	}, nil
}

// NewDemoDirectory returns a Directory holding DemoAccounts.
func NewDemoDirectory(hasher *password.Hasher, tokens *token.Issuer) (*Directory, error) {
	d, err := NewDirectory(hasher, tokens)
	if err != nil {
		return nil, err
	}
	for _, a := range DemoAccounts() {
		if err := d.Add(a.User, a.Password); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add registers or replaces the account for u.Username.
func (d *Directory) Add(u session.User, plain string) error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	hash, err := d.hasher.Hash(plain)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.accounts[u.Username] = account{user: u, hash: hash}
	d.mu.Unlock()
	return nil
}

// Lookup returns the user registered under username.
func (d *Directory) Lookup(username string) (session.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[username]
	return a.user, ok
}

func (d *Directory) VerifyCredentials(ctx context.Context, identity, secret string) (session.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return session.Credentials{}, err
	}

	d.mu.RLock()
	a, ok := d.accounts[identity]
	d.mu.RUnlock()

	hash := a.hash
	if !ok {
		hash = d.decoy
	}
	match, err := d.hasher.Verify(secret, hash)
	if err != nil {
		return session.Credentials{}, err
	}
	if !ok || !match {
		return session.Credentials{}, session.ErrRejected
	}

	access, refresh, err := d.tokens.IssuePair()
	if err != nil {
		return session.Credentials{}, err
	}
	return session.Credentials{User: a.user, AccessToken: access, RefreshToken: refresh}, nil
}
