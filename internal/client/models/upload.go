package models

// StoreArg is one request to the asset store. SHA256, when set, lets the
// store verify the content it received.
type StoreArg struct {
	Key             string
	ContentType     string
	ContentEncoding string
	Content         []byte
	SHA256          []byte
}

// UploadFailure records a file that did not make it to the store.
type UploadFailure struct {
	FileName string
	Key      string
	Err      error
}

func (f UploadFailure) Error() string {
	if f.Err == nil {
		return f.FileName
	}
	return f.FileName + ": " + f.Err.Error()
}

func (f UploadFailure) Unwrap() error { return f.Err }

// BatchResult is the outcome of one upload batch. Keys are in selection
// order.
type BatchResult struct {
	Keys     []string
	Failures []UploadFailure
}

// Failed reports whether any file in the batch failed.
func (b *BatchResult) Failed() bool {
	return b != nil && len(b.Failures) > 0
}
