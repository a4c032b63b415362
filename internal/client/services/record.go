package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/carvault/internal/client/client"
	"github.com/dmitrijs2005/carvault/internal/client/models"
	"github.com/dmitrijs2005/carvault/internal/client/picker"
	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	"github.com/dmitrijs2005/carvault/internal/logging"
)

// MsgCanistersUnavailable is shown when an upload is attempted without a
// usable remote client.
const MsgCanistersUnavailable = "Canisters not available. Please log in."

// ClientSource hands out the remote client for uploads.
type ClientSource interface {
	GetClient(ctx context.Context) (client.RemoteClient, error)
}

// RecordController owns the record being edited and routes uploaded asset
// keys into it. Safe for concurrent use.
type RecordController struct {
	source     ClientSource
	canisterID string
	log        logging.Logger

	mu        sync.Mutex
	record    models.Record
	uploading bool
	progress  int
	errMsg    string
}

func NewRecordController(source ClientSource, canisterID string, log logging.Logger) *RecordController {
	if log == nil {
		log = logging.Nop{}
	}
	return &RecordController{
		source:     source,
		canisterID: canisterID,
		log:        log,
		record:     models.Record{Owner: delegation.Anonymous.String()},
	}
}

// SelectFile uploads sel and attaches the resulting keys to field: logo
// takes the first key, images and documents append in order. The record is
// never touched by a failed upload. The selection is reset and the
// uploading flag cleared on every path.
func (c *RecordController) SelectFile(ctx context.Context, field models.Field, sel picker.Selection) (*models.BatchResult, error) {
	if _, ok := models.ParseField(string(field)); !ok {
		if sel != nil {
			sel.Reset()
		}
		c.log.Warn(ctx, "unknown field", "field", field)
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownField, field)
	}

	c.mu.Lock()
	c.uploading = true
	c.progress = 0
	c.errMsg = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
		if sel != nil {
			sel.Reset()
		}
	}()

	if sel == nil || len(sel.Files()) == 0 {
		return &models.BatchResult{Keys: []string{}}, nil
	}

	rc, err := c.source.GetClient(ctx)
	if err != nil {
		c.setError(MsgCanistersUnavailable)
		c.log.Error(ctx, MsgCanistersUnavailable, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrNotAuthenticated, err)
	}

	u := &Uploader{Store: rc, CanisterID: c.canisterID, Log: c.log, OnProgress: c.setProgress}
	res, err := u.Upload(ctx, sel)
	if err != nil {
		c.setError(fmt.Sprintf("Upload failed: %v", err))
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch field {
	case models.FieldLogo:
		if len(res.Keys) > 0 {
			c.record.Logo = res.Keys[0]
		}
	case models.FieldImages:
		c.record.Images = append(c.record.Images, res.Keys...)
	case models.FieldDocuments:
		c.record.Documents = append(c.record.Documents, res.Keys...)
	}

	if res.Failed() {
		c.errMsg = aggregateFailure(res)
	} else {
		c.progress = 100
	}
	return res, nil
}

func aggregateFailure(res *models.BatchResult) string {
	names := make([]string, 0, len(res.Failures))
	for _, f := range res.Failures {
		names = append(names, f.FileName)
	}
	return fmt.Sprintf("Upload failed for %d file(s): %s", len(names), strings.Join(names, ", "))
}

func (c *RecordController) setError(msg string) {
	c.mu.Lock()
	c.errMsg = msg
	c.mu.Unlock()
}

func (c *RecordController) setProgress(done, total int) {
	if total == 0 {
		return
	}
	c.mu.Lock()
	c.progress = done * 100 / total
	c.mu.Unlock()
}

// RemoveImage drops every occurrence of key.
func (c *RecordController) RemoveImage(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record.Images = removeAll(c.record.Images, key)
}

// RemoveDocument drops every occurrence of key.
func (c *RecordController) RemoveDocument(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record.Documents = removeAll(c.record.Documents, key)
}

func removeAll(keys []string, key string) []string {
	return slices.DeleteFunc(keys, func(k string) bool { return k == key })
}

func (c *RecordController) SetID(id uint64) {
	c.mu.Lock()
	c.record.ID = id
	c.mu.Unlock()
}

func (c *RecordController) SetName(name string) {
	c.mu.Lock()
	c.record.Name = name
	c.mu.Unlock()
}

func (c *RecordController) SetModel(model string) {
	c.mu.Lock()
	c.record.Model = model
	c.mu.Unlock()
}

func (c *RecordController) SetApproved(v bool) {
	c.mu.Lock()
	c.record.Approved = v
	c.mu.Unlock()
}

func (c *RecordController) ClearLogo() {
	c.mu.Lock()
	c.record.Logo = ""
	c.mu.Unlock()
}

// Record returns a copy of the current record.
func (c *RecordController) Record() models.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.Clone()
}

// Error is the last user-visible error, empty if none.
func (c *RecordController) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *RecordController) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// Progress is the share of the current or last batch handled, 0-100.
func (c *RecordController) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Reset discards the record and all upload state, starting a fresh record
// owned by owner, or by the anonymous principal when owner is empty. It
// runs after every login and logout.
func (c *RecordController) Reset(owner string) {
	if owner == "" {
		owner = delegation.Anonymous.String()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = models.Record{Owner: owner}
	c.uploading = false
	c.progress = 0
	c.errMsg = ""
}
