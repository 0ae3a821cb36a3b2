// Package models defines the file-level types shared by storage and layout
// synchronisation.
package models

import "time"

// LayoutMeta describes one layout file on disk.
type LayoutMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
