package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/carvault/internal/client/models"
	"github.com/dmitrijs2005/carvault/internal/client/picker"
	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/logging"
)

// AssetStore is the part of the remote client the upload pipeline needs.
type AssetStore interface {
	Store(ctx context.Context, canisterID string, arg models.StoreArg) (string, error)
}

// AssetKey is the store key a file is uploaded under.
func AssetKey(fileName string) string {
	return common.AssetKeyPrefix + fileName
}

// Uploader pushes a selection to the asset store one file at a time.
type Uploader struct {
	Store      AssetStore
	CanisterID string
	Log        logging.Logger
	// OnProgress, if set, is called after each file with the number of
	// files handled so far.
	OnProgress func(done, total int)
}

// Upload processes the selection in order. A file that cannot be read or
// stored is recorded in the result's Failures and the batch continues.
// The only batch-level error is a missing store.
func (u *Uploader) Upload(ctx context.Context, sel picker.Selection) (*models.BatchResult, error) {
	log := u.Log
	if log == nil {
		log = logging.Nop{}
	}

	result := &models.BatchResult{Keys: []string{}}
	if sel == nil {
		return result, nil
	}
	files := sel.Files()
	if len(files) == 0 {
		return result, nil
	}
	if u.Store == nil {
		return nil, common.ErrNotAuthenticated
	}

	for i, f := range files {
		key := AssetKey(f.Name())

		if err := u.uploadOne(ctx, f, key); err != nil {
			result.Failures = append(result.Failures, models.UploadFailure{FileName: f.Name(), Key: key, Err: err})
			log.Error(ctx, "upload failed", "file", f.Name(), "key", key, "error", err)
		} else {
			result.Keys = append(result.Keys, key)
			log.Debug(ctx, "uploaded", "file", f.Name(), "key", key)
		}

		if u.OnProgress != nil {
			u.OnProgress(i+1, len(files))
		}
	}

	if len(result.Failures) > 0 {
		log.Warn(ctx, "upload batch finished with failures",
			"uploaded", len(result.Keys), "failed", len(result.Failures))
	}
	return result, nil
}

func (u *Uploader) uploadOne(ctx context.Context, f picker.File, key string) error {
	content, err := f.Read(ctx)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	arg := models.StoreArg{
		Key:             key,
		ContentType:     f.ContentType(),
		ContentEncoding: common.ContentEncodingIdentity,
		Content:         content,
		SHA256:          cryptox.ContentHash(content),
	}

	stored, err := u.Store.Store(ctx, u.CanisterID, arg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if stored != key {
		return fmt.Errorf("store: returned key %q, want %q", stored, key)
	}
	return nil
}

// UploadFiles uploads sel to canisterID through store.
func UploadFiles(ctx context.Context, sel picker.Selection, store AssetStore, canisterID string, log logging.Logger) (*models.BatchResult, error) {
	u := &Uploader{Store: store, CanisterID: canisterID, Log: log}
	return u.Upload(ctx, sel)
}
