package doctree

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/services"
)

func TestCreateDocumentInsertsNode(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-1", models.Tree{n("A")})

	zero := 0
	doc, err := env.docSvc.CreateDocument(context.Background(), &services.CreateDocumentRequest{
		CollectionID:     "col-1",
		ParentDocumentID: strPtr("A"),
		Title:            "Getting Started",
		Content:          "alpha beta gamma",
		Index:            &zero,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.WordCount != 3 {
		t.Errorf("word count = %d, want 3", doc.WordCount)
	}
	if !strings.HasPrefix(doc.URL, "/doc/getting-started-") {
		t.Errorf("url = %q, want a /doc/getting-started- slug", doc.URL)
	}

	// Record and node land together.
	if _, err := env.docSvc.GetDocument(context.Background(), doc.ID, "col-1"); err != nil {
		t.Fatalf("document record missing: %v", err)
	}
	tree := env.structure(t, "col-1")
	if len(tree) != 1 || len(tree[0].Children) != 1 {
		t.Fatalf("structure = %v, want the new node under A", tree)
	}
	child := tree[0].Children[0]
	if child.ID != doc.ID || child.Title != "Getting Started" || child.URL != doc.URL {
		t.Errorf("node = %+v, want the document's display fields", child)
	}

	events := env.events.all()
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Name != models.EventStructureInsert {
		t.Errorf("event name = %q, want %q", ev.Name, models.EventStructureInsert)
	}
	if ev.DocumentID != doc.ID || ev.ParentDocumentID == nil || *ev.ParentDocumentID != "A" {
		t.Errorf("event = (%q, %v), want (%q, A)", ev.DocumentID, ev.ParentDocumentID, doc.ID)
	}
}

func TestCreateDocumentAppendsAtTopLevel(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-1", models.Tree{n("A")})

	doc, err := env.docSvc.CreateDocument(context.Background(), &services.CreateDocumentRequest{
		CollectionID: "col-1",
		Title:        "Appendix",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tree := env.structure(t, "col-1")
	if len(tree) != 2 || tree[1].ID != doc.ID {
		t.Fatalf("structure = %v, want Appendix appended after A", tree)
	}
	if tree[1].ParentID != nil {
		t.Errorf("node parent = %v, want top level", tree[1].ParentID)
	}
}

func TestCreateDocumentUninitializedRollsBackRecord(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-j", nil)

	_, err := env.docSvc.CreateDocument(context.Background(), &services.CreateDocumentRequest{
		CollectionID: "col-j",
		Title:        "Orphan",
	})
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("error = %v, want ErrNotInitialized", err)
	}
	// The rejected insert takes the record creation down with it.
	if got := env.documents.ids(); len(got) != 0 {
		t.Errorf("documents = %v, want none after rollback", got)
	}
	if evs := env.events.all(); len(evs) != 0 {
		t.Errorf("event count = %d, want 0", len(evs))
	}
}

func TestCreateDocumentMissingParentRollsBackRecord(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-1", models.Tree{n("A")})

	_, err := env.docSvc.CreateDocument(context.Background(), &services.CreateDocumentRequest{
		CollectionID:     "col-1",
		ParentDocumentID: strPtr("ghost"),
		Title:            "Orphan",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if got := env.documents.ids(); len(got) != 0 {
		t.Errorf("documents = %v, want none after rollback", got)
	}
}

func TestCreateDocumentValidation(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)

	tests := []struct {
		name string
		req  *services.CreateDocumentRequest
	}{
		{name: "missing collection", req: &services.CreateDocumentRequest{Title: "T"}},
		{name: "missing title", req: &services.CreateDocumentRequest{CollectionID: "col-1"}},
		{name: "title too long", req: &services.CreateDocumentRequest{CollectionID: "col-1", Title: strings.Repeat("x", 256)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.docSvc.CreateDocument(context.Background(), tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpdateDocumentTitleRefreshesNode(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-1", models.Tree{n("A", n("B"))})
	env.seedDocument(t, "B", "col-1", strPtr("A"))

	title := "Renamed Chapter"
	doc, err := env.docSvc.UpdateDocument(context.Background(), "B", &services.UpdateDocumentRequest{
		CollectionID: "col-1",
		Title:        &title,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if doc.Title != title {
		t.Errorf("title = %q, want %q", doc.Title, title)
	}
	if !strings.HasPrefix(doc.URL, "/doc/renamed-chapter-") {
		t.Errorf("url = %q, want regenerated slug", doc.URL)
	}

	tree := env.structure(t, "col-1")
	node := tree[0].Children[0]
	if node.Title != title || node.URL != doc.URL {
		t.Errorf("node = (%q, %q), want refreshed display fields", node.Title, node.URL)
	}
	// Children and position survive a display refresh.
	if tree[0].ID != "A" || len(tree[0].Children) != 1 {
		t.Errorf("structure shape changed: %v", tree)
	}

	events := env.events.all()
	if len(events) != 1 || events[0].Name != models.EventStructureUpdate {
		t.Fatalf("events = %v, want one structure update", events)
	}
}

func TestUpdateDocumentContentOnly(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-1", models.Tree{n("B")})
	env.seedDocument(t, "B", "col-1", nil)

	content := "one two three four"
	doc, err := env.docSvc.UpdateDocument(context.Background(), "B", &services.UpdateDocumentRequest{
		CollectionID: "col-1",
		Content:      &content,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if doc.WordCount != 4 {
		t.Errorf("word count = %d, want 4", doc.WordCount)
	}
	if doc.Title != "Title B" {
		t.Errorf("title = %q, want unchanged", doc.Title)
	}

	// A content edit never touches the structure.
	if evs := env.events.all(); len(evs) != 0 {
		t.Errorf("event count = %d, want 0", len(evs))
	}
}

func TestUpdateDetachedDocumentUpdatesRecordOnly(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-1", models.Tree{n("A")})
	// B exists as a record but is not part of the structure.
	env.seedDocument(t, "B", "col-1", nil)

	title := "Detached Draft"
	doc, err := env.docSvc.UpdateDocument(context.Background(), "B", &services.UpdateDocumentRequest{
		CollectionID: "col-1",
		Title:        &title,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if doc.Title != title {
		t.Errorf("title = %q, want %q", doc.Title, title)
	}

	stored, err := env.documents.GetByID(context.Background(), "B", "col-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Title != title {
		t.Errorf("stored title = %q, want the record update to commit", stored.Title)
	}
	assertTree(t, normalize(t, models.Tree{n("A")}), env.structure(t, "col-1"))
	if evs := env.events.all(); len(evs) != 0 {
		t.Errorf("event count = %d, want 0 for a detached rename", len(evs))
	}
}

func TestUpdateDocumentInJournalCollection(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-j", nil)
	env.seedDocument(t, "B", "col-j", nil)

	title := "Journal Entry"
	if _, err := env.docSvc.UpdateDocument(context.Background(), "B", &services.UpdateDocumentRequest{
		CollectionID: "col-j",
		Title:        &title,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if evs := env.events.all(); len(evs) != 0 {
		t.Errorf("event count = %d, want 0", len(evs))
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-1", models.Tree{n("A")})

	title := "T"
	_, err := env.docSvc.UpdateDocument(context.Background(), "ghost", &services.UpdateDocumentRequest{
		CollectionID: "col-1",
		Title:        &title,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDestroyDocumentCascades(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-1", models.Tree{n("A", n("B")), n("Z")})
	env.seedDocument(t, "A", "col-1", nil)
	env.seedDocument(t, "B", "col-1", strPtr("A"))
	env.seedDocument(t, "Z", "col-1", nil)

	if err := env.docSvc.DestroyDocument(context.Background(), "A", "col-1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	assertTree(t, normalize(t, models.Tree{n("Z")}), env.structure(t, "col-1"))
	for _, id := range env.documents.ids() {
		if id != "Z" {
			t.Errorf("document %s survived the destroy", id)
		}
	}
	events := env.events.all()
	if len(events) != 1 || events[0].Name != models.EventStructureRemove {
		t.Fatalf("events = %v, want one structure remove", events)
	}
	if got := events[0].Extra[models.ExtraMode]; got != string(services.RemoveModeDelete) {
		t.Errorf("mode extra = %v, want delete", got)
	}
}

func TestDestroyDetachedDocument(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedCollection(t, "col-1", models.Tree{n("A")})
	env.seedDocument(t, "B", "col-1", nil)

	// Destroy goes through the structure; a detached record is out of reach.
	if err := env.docSvc.DestroyDocument(context.Background(), "B", "col-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if _, err := env.documents.GetByID(context.Background(), "B", "col-1"); err != nil {
		t.Fatalf("detached record deleted by a failed destroy: %v", err)
	}
}
