package services

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	pb "github.com/dmitrijs2005/carvault/internal/proto"
	"github.com/dmitrijs2005/carvault/internal/server/models"
	"github.com/dmitrijs2005/carvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/carvault/internal/server/storage"
)

// Certifier signs the binding of a key to its content hash.
// *auth.Certifier implements it.
type Certifier interface {
	Certify(key string, contentHash []byte) []byte
	RootKey() ed25519.PublicKey
}

type AssetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       storage.BlobStore
	certifier   Certifier
	maxSize     int64
}

func NewAssetService(db *sql.DB, m repomanager.RepositoryManager, blobs storage.BlobStore, c Certifier, maxSize int64) *AssetService {
	return &AssetService{db: db, repomanager: m, blobs: blobs, certifier: c, maxSize: maxSize}
}

// StorageKey is where the body of key inside canisterID is kept.
func StorageKey(canisterID, key string) string {
	return path.Join("assets", canisterID, strings.TrimPrefix(key, "/"))
}

func (s *AssetService) validate(req *pb.StoreRequest) error {
	switch {
	case req.CanisterID == "":
		return fmt.Errorf("%w: canister id is required", common.ErrorValidation)
	case req.Key == "" || !strings.HasPrefix(req.Key, "/"):
		return fmt.Errorf("%w: key must start with /", common.ErrorValidation)
	case strings.Contains(req.Key, ".."):
		return fmt.Errorf("%w: key must not contain ..", common.ErrorValidation)
	case req.ContentEncoding != "" && req.ContentEncoding != common.ContentEncodingIdentity:
		return fmt.Errorf("%w: %q", common.ErrUnsupportedEncoding, req.ContentEncoding)
	case s.maxSize > 0 && int64(len(req.Content)) > s.maxSize:
		return fmt.Errorf("%w: content is %d bytes, limit is %d", common.ErrorValidation, len(req.Content), s.maxSize)
	}
	return nil
}

// Store saves one asset on behalf of owner and returns the certified key.
// Storing an existing key overwrites it.
func (s *AssetService) Store(ctx context.Context, owner delegation.Principal, req *pb.StoreRequest) (*pb.StoreResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	hash := cryptox.ContentHash(req.Content)
	if len(req.SHA256) > 0 && !bytes.Equal(hash, req.SHA256) {
		return nil, common.ErrHashMismatch
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(req.Content).String()
	}

	asset := &models.Asset{
		CanisterID:      req.CanisterID,
		Key:             req.Key,
		ContentType:     contentType,
		ContentEncoding: common.ContentEncodingIdentity,
		SHA256:          hash,
		Size:            int64(len(req.Content)),
		Owner:           owner.String(),
		StorageKey:      StorageKey(req.CanisterID, req.Key),
	}

	if err := s.blobs.Put(ctx, asset.StorageKey, req.Content, contentType); err != nil {
		return nil, fmt.Errorf("error storing content: %w", err)
	}

	if err := s.repomanager.Assets(s.db).Upsert(ctx, asset); err != nil {
		return nil, fmt.Errorf("error saving asset: %w", err)
	}

	return &pb.StoreResponse{
		Key:         asset.Key,
		SHA256:      hash,
		Certificate: s.certifier.Certify(asset.Key, hash),
	}, nil
}

// Get returns the metadata and body of a stored asset.
func (s *AssetService) Get(ctx context.Context, canisterID, key string) (*models.Asset, []byte, error) {
	asset, err := s.repomanager.Assets(s.db).Get(ctx, canisterID, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("error loading asset: %w", err)
	}

	body, err := s.blobs.Get(ctx, asset.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading content: %w", err)
	}
	return asset, body, nil
}

func (s *AssetService) RootKey() ed25519.PublicKey {
	return s.certifier.RootKey()
}
