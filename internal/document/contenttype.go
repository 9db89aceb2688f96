// Package document holds the access policy for stored documents: the fixed
// extension to media type table and the rules a requested name must satisfy
// before it is resolved against the document root.
package document

import (
	"path"
	"strings"

	"github.com/gofiber/fiber/v2/utils"
)

// DefaultContentType is returned for any extension missing from the table.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// Ext returns the lowercase extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(path.Ext(name))
}

// ContentType maps name to the media type used for forced downloads.
// The lookup is total: unknown or missing extensions yield DefaultContentType.
func ContentType(name string) string {
	if ct, ok := contentTypes[Ext(name)]; ok {
		return ct
	}
	return DefaultContentType
}

// InlineContentType is used by the static mount, where the client decides how to
// render the body. It prefers the download table, then fiber's MIME registry.
func InlineContentType(name string) string {
	ext := Ext(name)
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	// GetMIME already falls back to octet-stream for unknown extensions.
	if ct := utils.GetMIME(ext); ct != "" {
		return ct
	}
	return DefaultContentType
}
