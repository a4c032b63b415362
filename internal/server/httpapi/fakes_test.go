package httpapi

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	"github.com/dmitrijs2005/carvault/internal/server/models"
	"github.com/dmitrijs2005/carvault/internal/server/services"
)

var errBoom = errors.New("boom")

type fakeIdentity struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error

	lastTTL time.Duration
	lastKey ed25519.PublicKey
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{users: map[string]*models.User{}}
}

func (f *fakeIdentity) Register(_ context.Context, username string, salt, verifier []byte) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if username == "" {
		return nil, common.ErrorValidation
	}
	if _, ok := f.users[username]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u := &models.User{ID: "id-" + username, UserName: username, Salt: salt, Verifier: verifier}
	f.users[username] = u
	return u, nil
}

func (f *fakeIdentity) GetSalt(_ context.Context, username string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[username]; ok {
		return u.Salt, nil
	}
	return []byte("stand-in"), nil
}

func (f *fakeIdentity) Authorize(_ context.Context, username string, verifier []byte, sessionKey ed25519.PublicKey, maxTTL time.Duration) (*services.Delegation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.lastTTL, f.lastKey = maxTTL, sessionKey
	u, ok := f.users[username]
	if !ok || !bytes.Equal(u.Verifier, verifier) {
		return nil, common.ErrorUnauthorized
	}
	return &services.Delegation{
		Token:     "token-" + username,
		Principal: delegation.Principal(u.ID),
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

type fakeAssets struct {
	assets map[string]*models.Asset
	bodies map[string][]byte
	err    error
}

func (f *fakeAssets) Get(_ context.Context, canisterID, key string) (*models.Asset, []byte, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	a, ok := f.assets[canisterID+key]
	if !ok {
		return nil, nil, common.ErrorNotFound
	}
	return a, f.bodies[canisterID+key], nil
}
