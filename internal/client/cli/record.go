package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/carvault/internal/client/models"
	"github.com/dmitrijs2005/carvault/internal/client/picker"
	"github.com/dmitrijs2005/carvault/internal/common"
)

var getConfirmation = GetConfirmation

// Upload sends the files named in args[1:] and attaches their keys to the
// field named by args[0].
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) < 2 {
		printlnFn("Usage: upload logo|images|documents <path>...")
		return nil
	}

	sel := picker.FromPaths(args[1:], a.config.MaxUploadSize)
	res, err := a.records.SelectFile(ctx, models.Field(args[0]), sel)
	if err != nil {
		if msg := a.records.Error(); msg != "" {
			printlnFn(msg)
		}
		return err
	}

	for _, k := range res.Keys {
		printlnFn("Uploaded", k)
	}
	if res.Failed() {
		printlnFn(a.records.Error())
		for _, f := range res.Failures {
			printlnFn(fmt.Sprintf("  %s: %v", f.FileName, f.Err))
		}
	}
	return nil
}

// Remove drops one image or document key from the record.
func (a *App) Remove(_ context.Context, args []string) error {
	if len(args) != 2 {
		printlnFn("Usage: remove image|document <key>")
		return nil
	}

	switch args[0] {
	case "image", "images":
		a.records.RemoveImage(args[1])
	case "document", "documents":
		a.records.RemoveDocument(args[1])
	default:
		return fmt.Errorf("%w: %q", common.ErrUnknownField, args[0])
	}
	return nil
}

// Set changes one scalar field of the record.
func (a *App) Set(_ context.Context, args []string) error {
	if len(args) < 2 {
		printlnFn("Usage: set id|name|model|approved <value>")
		return nil
	}
	value := strings.Join(args[1:], " ")

	switch args[0] {
	case "id":
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: id: %w", common.ErrorValidation, err)
		}
		a.records.SetID(id)
	case "name":
		a.records.SetName(value)
	case "model":
		a.records.SetModel(value)
	case "approved":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: approved: %w", common.ErrorValidation, err)
		}
		a.records.SetApproved(v)
	default:
		return fmt.Errorf("%w: %q", common.ErrUnknownField, args[0])
	}
	return nil
}

func (a *App) ClearLogo(context.Context) error {
	a.records.ClearLogo()
	return nil
}

// New discards the record after confirmation.
func (a *App) New(ctx context.Context) error {
	ok, err := getConfirmation(a.reader, "Discard the current record?", os.Stdout)
	if err != nil || !ok {
		return err
	}
	a.resetRecord(ctx)
	return nil
}

// Show prints the record being edited.
func (a *App) Show(context.Context) error {
	r := a.records.Record()

	printlnFn(fmt.Sprintf("ID:        %d", r.ID))
	printlnFn(fmt.Sprintf("Name:      %s", r.Name))
	printlnFn(fmt.Sprintf("Model:     %s", r.Model))
	printlnFn(fmt.Sprintf("Owner:     %s", r.Owner))
	printlnFn(fmt.Sprintf("Approved:  %t", r.Approved))
	printlnFn(fmt.Sprintf("Logo:      %s", r.Logo))
	printlnFn(fmt.Sprintf("Images:    %s", strings.Join(r.Images, ", ")))
	printlnFn(fmt.Sprintf("Documents: %s", strings.Join(r.Documents, ", ")))

	if a.records.Uploading() {
		printlnFn(fmt.Sprintf("Uploading: %d%%", a.records.Progress()))
	}
	if msg := a.records.Error(); msg != "" {
		printlnFn("Error:    ", msg)
	}
	return nil
}
