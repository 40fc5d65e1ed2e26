package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/illegalcall/fittrack/internal/models"
)

const minPasswordLength = 6

var _ Provider = (*MemoryProvider)(nil)

// grant ties a token to its identity and to the other half of its pair.
type grant struct {
	id   string
	pair string
}

type account struct {
	id           string
	email        string
	passwordHash []byte
}

// MemoryProvider is an in-process identity provider. Passwords are bcrypt
// hashed and tokens are opaque random strings.
type MemoryProvider struct {
	mu      sync.Mutex
	cost    int
	byEmail map[string]*account
	byID    map[string]*account
	access  map[string]grant // access token -> identity, refresh token
	refresh map[string]grant // refresh token -> identity, access token
}

// NewMemoryProvider returns an empty provider hashing with bcrypt.DefaultCost.
func NewMemoryProvider() *MemoryProvider {
	return NewMemoryProviderWithCost(bcrypt.DefaultCost)
}

// NewMemoryProviderWithCost lets tests use bcrypt.MinCost.
func NewMemoryProviderWithCost(cost int) *MemoryProvider {
	return &MemoryProvider{
		cost:    cost,
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
		access:  make(map[string]grant),
		refresh: make(map[string]grant),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *MemoryProvider) SignUp(_ context.Context, email, password string) (models.Credentials, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return models.Credentials{}, ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return models.Credentials{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return models.Credentials{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byEmail[email]; exists {
		return models.Credentials{}, ErrEmailExists
	}
	acc := &account{id: uuid.NewString(), email: email, passwordHash: hash}
	p.byEmail[email] = acc
	p.byID[acc.id] = acc
	return p.issueLocked(acc), nil
}

func (p *MemoryProvider) SignIn(_ context.Context, email, password string) (models.Credentials, error) {
	p.mu.Lock()
	acc, ok := p.byEmail[normalizeEmail(email)]
	var hash []byte
	if ok {
		hash = acc.passwordHash
	}
	p.mu.Unlock()
	if !ok {
		return models.Credentials{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return models.Credentials{}, ErrInvalidCredentials
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issueLocked(acc), nil
}

func (p *MemoryProvider) Refresh(_ context.Context, refreshToken string) (models.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.refresh[refreshToken]
	if !ok {
		return models.Credentials{}, ErrInvalidToken
	}
	acc, ok := p.byID[g.id]
	if !ok {
		return models.Credentials{}, ErrUnknownIdentity
	}
	delete(p.refresh, refreshToken)
	delete(p.access, g.pair)
	return p.issueLocked(acc), nil
}

func (p *MemoryProvider) SignOut(_ context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.access[accessToken]
	if !ok {
		return ErrInvalidToken
	}
	delete(p.access, accessToken)
	delete(p.refresh, g.pair)
	return nil
}

func (p *MemoryProvider) UpdatePassword(_ context.Context, accessToken, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cost)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.access[accessToken]
	if !ok {
		return ErrInvalidToken
	}
	acc, ok := p.byID[g.id]
	if !ok {
		return ErrUnknownIdentity
	}
	acc.passwordHash = hash
	return nil
}

func (p *MemoryProvider) DeleteIdentity(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.byID[id]
	if !ok {
		return ErrUnknownIdentity
	}
	delete(p.byID, id)
	delete(p.byEmail, acc.email)
	for tok, g := range p.access {
		if g.id == id {
			delete(p.access, tok)
		}
	}
	for tok, g := range p.refresh {
		if g.id == id {
			delete(p.refresh, tok)
		}
	}
	return nil
}

func (p *MemoryProvider) issueLocked(acc *account) models.Credentials {
	access := uuid.NewString()
	refresh := uuid.NewString()
	p.access[access] = grant{id: acc.id, pair: refresh}
	p.refresh[refresh] = grant{id: acc.id, pair: access}
	return models.Credentials{
		Identity:     models.Identity{ID: acc.id, Email: acc.email},
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

// ActiveTokens counts the access tokens that are still valid.
func (p *MemoryProvider) ActiveTokens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.access)
}
