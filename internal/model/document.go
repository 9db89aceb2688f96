package model

import "time"

// Document represents an uploaded file in the document root.
// This is a pure domain model with no database-specific dependencies or tags.
// Filename is the stored name (and the key clients download by); OriginalName is
// what the uploader called it.
type Document struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	StoragePath  string    `json:"storage_path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
}
