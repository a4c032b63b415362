// Package services holds the reference server's account and asset logic.
package services

import (
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	"github.com/dmitrijs2005/carvault/internal/server/models"
	"github.com/dmitrijs2005/carvault/internal/server/repositories/repomanager"
)

// SaltSize is the length of salts handed out for unknown users.
const SaltSize = 32

// Issuer signs delegations. *auth.Authority implements it.
type Issuer interface {
	Issue(principal delegation.Principal, sessionKey ed25519.PublicKey, ttl time.Duration) (string, *delegation.Claims, error)
}

// Delegation is the outcome of a successful Authorize.
type Delegation struct {
	Token     string
	Principal delegation.Principal
	ExpiresAt time.Time
}

type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      Issuer
	saltKey     []byte
}

// NewIdentityService wires the account store to issuer. saltKey keys the
// stand-in salts given out for unknown user names.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, issuer Issuer, saltKey []byte) *IdentityService {
	return &IdentityService{db: db, repomanager: m, issuer: issuer, saltKey: saltKey}
}

func (s *IdentityService) Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error) {
	if username == "" || len(salt) == 0 || len(verifier) == 0 {
		return nil, fmt.Errorf("%w: username, salt and verifier are required", common.ErrorValidation)
	}

	user := &models.User{
		ID:       uuid.NewString(),
		UserName: username,
		Salt:     salt,
		Verifier: verifier,
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// GetSalt returns the user's salt. Unknown users get a stable stand-in so
// the response does not reveal whether an account exists.
func (s *IdentityService) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.standInSalt(userName), nil
		}
		return nil, common.ErrorInternal
	}

	return user.Salt, nil
}

func (s *IdentityService) standInSalt(userName string) []byte {
	if len(s.saltKey) == 0 {
		return common.GenerateRandByteArray(SaltSize)
	}
	mac := hmac.New(sha256.New, s.saltKey)
	mac.Write([]byte("salt:" + userName))
	return mac.Sum(nil)
}

func (s *IdentityService) checkVerifier(verifier []byte, verifierCandidate []byte) bool {
	return subtle.ConstantTimeCompare(verifier, verifierCandidate) == 1
}

// Authorize checks the verifier and issues a delegation for sessionKey.
// The principal is the user's id.
func (s *IdentityService) Authorize(ctx context.Context, userName string, verifierCandidate []byte, sessionKey ed25519.PublicKey, maxTTL time.Duration) (*Delegation, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if !s.checkVerifier(user.Verifier, verifierCandidate) {
		return nil, common.ErrorUnauthorized
	}

	token, claims, err := s.issuer.Issue(delegation.Principal(user.ID), sessionKey, maxTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	return &Delegation{Token: token, Principal: claims.Principal(), ExpiresAt: claims.ExpiresAt.Time}, nil
}
