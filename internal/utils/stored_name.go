package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileExtension returns the lower-cased extension of a client-supplied filename, including the dot.
func FileExtension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// GenerateStoredName returns a collision-resistant storage key for a blob.
// The client filename contributes only its extension.
func GenerateStoredName(originalName string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + FileExtension(originalName)
}
