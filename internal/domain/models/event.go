package models

import (
	"time"
)

// Event names recorded in the audit feed. Structure events capture one
// structural mutation each; collection events capture lifecycle changes.
const (
	EventStructureInsert = "structure.insert"
	EventStructureUpdate = "structure.update"
	EventStructureRemove = "structure.remove"
	EventStructureMove   = "structure.move"

	EventCollectionCreate = "collections.create"
	EventCollectionUpdate = "collections.update"
	EventCollectionDelete = "collections.delete"
)

// Extra keys used by structure and collection events.
const (
	ExtraIndex = "index"
	ExtraMode  = "mode"
	ExtraName  = "name"
	ExtraType  = "type"
)

// Event is one immutable audit record. Structural mutations carry the whole
// prior and resulting tree snapshots so downstream activity views can replay
// the transition without consulting the collection row.
type Event struct {
	ID               string         `json:"id" db:"id"`
	Name             string         `json:"name" db:"name"`
	CollectionID     string         `json:"collection_id" db:"collection_id"`
	TeamID           string         `json:"team_id" db:"team_id"`
	DocumentID       string         `json:"document_id,omitempty" db:"document_id"`
	ParentDocumentID *string        `json:"parent_document_id,omitempty" db:"parent_document_id"`
	PriorStructure   Tree           `json:"prior_structure" db:"prior_structure"`
	NewStructure     Tree           `json:"new_structure" db:"new_structure"`
	Extra            map[string]any `json:"extra,omitempty" db:"extra"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}
