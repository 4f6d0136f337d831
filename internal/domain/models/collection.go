package models

import (
	"time"
)

// Collection types. Only tree collections carry a document structure;
// journal collections are chronological and never initialize one.
const (
	CollectionTypeTree    = "tree"
	CollectionTypeJournal = "journal"
)

type Collection struct {
	ID          string     `json:"id" db:"id"`
	TeamID      string     `json:"team_id" db:"team_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	Color       string     `json:"color,omitempty" db:"color"`
	Type        string     `json:"type" db:"type"`
	Structure   Tree       `json:"structure" db:"document_structure"` // nil = uninitialized
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Initialized reports whether the collection's structure was ever seeded.
// Structural mutations on an uninitialized structure fail with
// domain.ErrNotInitialized.
func (c *Collection) Initialized() bool {
	return c.Structure != nil
}
