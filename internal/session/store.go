// Package session holds who is logged in. One Store is created at startup
// and handed to everything that needs the active identity.
//
// Store is not safe for concurrent use; callers run it on one execution
// context.
package session

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chetan-code/tasktracker/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Ticket tags work started on behalf of a session, so results that come
// back after the session changed can be told apart and dropped.
type Ticket struct {
	gen   uint64
	Email string
}

// Gen is the session generation the ticket was issued for.
func (t Ticket) Gen() uint64 { return t.gen }

type Store struct {
	current  *models.Identity
	gen      uint64
	accounts map[string]models.Account
	order    []string
	onReset  []func()
	now      func() time.Time
}

func New() *Store {
	return &Store{
		accounts: map[string]models.Account{},
		now:      time.Now,
	}
}

// OnReset registers fn to run whenever the active session is replaced or cleared.
func (s *Store) OnReset(fn func()) {
	s.onReset = append(s.onReset, fn)
}

func (s *Store) reset() {
	for _, fn := range s.onReset {
		fn()
	}
}

// Login replaces the active session with id. No check is made on who the
// caller claims to be; that belongs to whoever produced id.
func (s *Store) Login(id models.Identity) Ticket {
	s.reset()
	s.gen++
	id.Email = normalizeEmail(id.Email)
	s.current = &id
	return Ticket{gen: s.gen, Email: id.Email}
}

// Logout is a no-op when nobody is logged in.
func (s *Store) Logout() {
	if s.current == nil {
		return
	}
	s.reset()
	s.gen++
	s.current = nil
}

func (s *Store) Current() (models.Identity, bool) {
	if s.current == nil {
		return models.Identity{}, false
	}
	return *s.current, true
}

func (s *Store) Ticket() (Ticket, bool) {
	if s.current == nil {
		return Ticket{}, false
	}
	return Ticket{gen: s.gen, Email: s.current.Email}, true
}

func (s *Store) Valid(t Ticket) bool {
	return s.current != nil && t.gen == s.gen
}

// Enrich applies a profile lookup to the session t was issued for. A nil
// profile means nothing was found and leaves the identity as it is.
func (s *Store) Enrich(t Ticket, p *models.Profile) error {
	if !s.Valid(t) {
		return ErrStaleResult
	}
	if p == nil {
		return nil
	}
	if p.Name != "" {
		s.current.Name = p.Name
	}
	if p.Avatar != "" {
		s.current.Avatar = p.Avatar
	}
	if p.Phone != "" {
		s.current.Phone = p.Phone
	}
	return nil
}

// Register validates req and adds the account. It does not log in.
func (s *Store) Register(req RegisterRequest) (models.Account, error) {
	if err := s.validateRegister(req); err != nil {
		return models.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acc := models.Account{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	s.accounts[acc.Email] = acc
	s.order = append(s.order, acc.Email)
	return acc, nil
}

// Accounts lists registered accounts in registration order.
func (s *Store) Accounts() []models.Account {
	out := make([]models.Account, 0, len(s.order))
	for _, email := range s.order {
		out = append(out, s.accounts[email])
	}
	return out
}

// Authenticate checks email and password against the registered accounts
// and returns the identity to log in with.
func (s *Store) Authenticate(email, password string) (models.Identity, error) {
	acc, ok := s.accounts[normalizeEmail(email)]
	if !ok {
		return models.Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return models.Identity{}, ErrInvalidCredentials
	}
	return models.Identity{
		Email:  acc.Email,
		Name:   acc.Name,
		Avatar: avatarFor(acc.Email),
	}, nil
}

// DemoIdentity is what a form login produces when credentials are taken on trust.
func DemoIdentity(email string) models.Identity {
	email = normalizeEmail(email)
	return models.Identity{
		Email:  email,
		Name:   "Demo User",
		Avatar: avatarFor(email),
	}
}

func avatarFor(email string) string {
	return "https://i.pravatar.cc/150?u=" + url.QueryEscape(email)
}
