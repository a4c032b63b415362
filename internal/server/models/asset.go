package models

import "time"

// Asset is the metadata row of one stored file. The body lives in blob
// storage under StorageKey. (CanisterID, Key) is unique.
type Asset struct {
	CanisterID      string
	Key             string
	ContentType     string
	ContentEncoding string
	SHA256          []byte
	Size            int64
	Owner           string
	StorageKey      string
	UpdatedAt       time.Time
}
