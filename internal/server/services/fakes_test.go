package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/dbx"
	"github.com/dmitrijs2005/carvault/internal/server/models"
	"github.com/dmitrijs2005/carvault/internal/server/repositories/assets"
	"github.com/dmitrijs2005/carvault/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

type fakeUsersRepo struct {
	mu        sync.Mutex
	byName    map[string]*models.User
	createErr error
	getErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byName: map[string]*models.User{}}
}

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.byName[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	cp := *u
	r.byName[u.UserName] = &cp
	return &cp, nil
}

func (r *fakeUsersRepo) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byName[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fakeAssetsRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.Asset
	upsertErr error
	getErr    error
}

func newFakeAssetsRepo() *fakeAssetsRepo {
	return &fakeAssetsRepo{rows: map[string]*models.Asset{}}
}

func (r *fakeAssetsRepo) Upsert(_ context.Context, a *models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	cp := *a
	r.rows[a.CanisterID+a.Key] = &cp
	return nil
}

func (r *fakeAssetsRepo) Get(_ context.Context, canisterID, key string) (*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	a, ok := r.rows[canisterID+key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

type fakeRepoManager struct {
	users  *fakeUsersRepo
	assets *fakeAssetsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newFakeUsersRepo(), assets: newFakeAssetsRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.users }
func (m *fakeRepoManager) Assets(dbx.DBTX) assets.Repository           { return m.assets }

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *fakeBlobs) Put(_ context.Context, key string, body []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	b.objects[key] = append([]byte(nil), body...)
	b.types[key] = contentType
	return nil
}

func (b *fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body, ok := b.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return body, nil
}
