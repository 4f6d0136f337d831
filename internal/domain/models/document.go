package models

import (
	"time"
)

type Document struct {
	ID               string    `json:"id" db:"id"`
	CollectionID     string    `json:"collection_id" db:"collection_id"`
	TeamID           string    `json:"team_id" db:"team_id"`
	ParentDocumentID *string   `json:"parent_document_id,omitempty" db:"parent_document_id"` // NULL = top-level
	Title            string    `json:"title" db:"title"`
	URL              string    `json:"url" db:"url"` // slug path, e.g. /doc/welcome-3f2b8c419a
	Content          string    `json:"content" db:"content"`
	WordCount        int       `json:"word_count" db:"word_count"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Node returns the document's navigation snapshot with no children attached.
func (d *Document) Node() Node {
	return Node{
		ID:       d.ID,
		ParentID: d.ParentDocumentID,
		Title:    d.Title,
		URL:      d.URL,
		Children: []Node{},
	}
}
