package store

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/auth"
)

type tokenKey struct {
	identity string
	provider string
}

// MemoryStore keeps tokens in a map. Contents are lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[tokenKey]*oauth2.Token
	users  map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[tokenKey]*oauth2.Token),
		users:  make(map[string]struct{}),
	}
}

func (s *MemoryStore) UpsertToken(_ context.Context, identity, provider string, tok *oauth2.Token) error {
	if err := validateKey(identity, provider); err != nil {
		return err
	}
	if tok == nil {
		return fmt.Errorf("token cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tok
	s.tokens[tokenKey{identity, provider}] = &cp
	return nil
}

func (s *MemoryStore) GetToken(_ context.Context, identity, provider string) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.tokens[tokenKey{identity, provider}]
	if !ok {
		return nil, auth.ErrTokenNotFound
	}
	cp := *tok
	return &cp, nil
}

func (s *MemoryStore) DeleteToken(_ context.Context, identity, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := tokenKey{identity, provider}
	if _, ok := s.tokens[k]; !ok {
		return auth.ErrTokenNotFound
	}
	delete(s.tokens, k)
	return nil
}

func (s *MemoryStore) EnsureUser(_ context.Context, identity string) error {
	if identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[identity] = struct{}{}
	return nil
}

// HasUser reports whether EnsureUser has recorded identity.
func (s *MemoryStore) HasUser(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[identity]
	return ok
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
