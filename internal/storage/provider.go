// Package storage defines the layout directory abstraction.
package storage

import "github.com/starford/kanbo/internal/models"

// LayoutExt is the file extension of board layout files.
const LayoutExt = ".md"

// Provider is the read-only interface for layout files. Layouts are authored
// outside the service; it only lists and reads them.
type Provider interface {
	// List returns metadata for every layout file under dir (relative to root).
	List(dir string) ([]models.LayoutMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
}
