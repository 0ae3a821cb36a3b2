package board

import (
	"cmp"
	"time"
)

// User is the acting identity supplied by the caller. Accounts are managed
// elsewhere; the board only records the id.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// Card is a single unit of content inside a column.
type Card struct {
	ID         int64      `json:"id"`
	Content    string     `json:"content"`
	Archived   bool       `json:"archived"`
	CreatedBy  int64      `json:"created_by"`
	UpdatedBy  int64      `json:"updated_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// Compare is the natural card order used by SortBoard: ascending identifier.
// Identifiers are unique within a board, so the order is total.
func (c *Card) Compare(other *Card) int {
	return cmp.Compare(c.ID, other.ID)
}

// touch stamps an update by actor. UpdatedAt never moves backwards.
func (c *Card) touch(now time.Time, actor User) {
	if now.Before(c.UpdatedAt) {
		now = c.UpdatedAt
	}
	c.UpdatedAt = now
	c.UpdatedBy = actor.ID
}

func (c *Card) archive(now time.Time, actor User) {
	c.touch(now, actor)
	at := c.UpdatedAt
	c.Archived = true
	c.ArchivedAt = &at
}
