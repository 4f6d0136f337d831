package doctree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/services"
	"arbor/internal/locks"
	"arbor/internal/templates"
)

// fakeTeamRepo is an in-memory TeamRepository.
type fakeTeamRepo struct {
	mu    sync.Mutex
	teams map[string]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[string]*models.Team)}
}

func (f *fakeTeamRepo) Create(_ context.Context, team *models.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.teams[team.ID]; exists {
		return fmt.Errorf("team %s: %w", team.ID, domain.ErrConflict)
	}
	cp := *team
	f.teams[team.ID] = &cp
	return nil
}

func (f *fakeTeamRepo) GetByID(_ context.Context, id string) (*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[id]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", id, domain.ErrNotFound)
	}
	cp := *team
	return &cp, nil
}

// lifecycleEnv extends testEnv with the collection and document services,
// all wired over the same fakes, registry and transaction manager.
type lifecycleEnv struct {
	*testEnv
	teams  *fakeTeamRepo
	colSvc services.CollectionService
	docSvc services.DocumentService
}

func newLifecycleEnv(t *testing.T, lockWait time.Duration) *lifecycleEnv {
	t.Helper()
	env := newTestEnv(lockWait)
	teams := newFakeTeamRepo()
	tmpl, err := templates.NewRegistry()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &lifecycleEnv{
		testEnv: env,
		teams:   teams,
		colSvc:  NewCollectionService(env.collections, env.documents, teams, env.events, env.tx, env.registry, tmpl, logger),
		docSvc:  NewDocumentService(env.documents, env.collections, env.svc, env.tx, env.registry, logger),
	}
}

func (e *lifecycleEnv) seedTeam(t *testing.T, id string) {
	t.Helper()
	err := e.teams.Create(context.Background(), &models.Team{
		ID:        id,
		Name:      "Team " + id,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}
}

func (e *lifecycleEnv) createCollection(t *testing.T, teamID, name, colType string) *models.Collection {
	t.Helper()
	col, err := e.colSvc.CreateCollection(context.Background(), &services.CreateCollectionRequest{
		TeamID: teamID,
		Name:   name,
		Type:   colType,
	})
	if err != nil {
		t.Fatalf("create collection %q: %v", name, err)
	}
	return col
}

func TestCreateCollectionBootstrap(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedTeam(t, "team-1")

	// The team's first two collections get a welcome document.
	for i, name := range []string{"Handbook", "Runbooks"} {
		col := env.createCollection(t, "team-1", name, models.CollectionTypeTree)
		if col.Structure.Len() != 1 {
			t.Fatalf("collection %d structure = %v, want one welcome node", i+1, col.Structure)
		}
		welcome := col.Structure[0]
		if want := "Welcome to " + name; welcome.Title != want {
			t.Errorf("welcome title = %q, want %q", welcome.Title, want)
		}
		if !strings.HasPrefix(welcome.URL, "/doc/welcome-to-") {
			t.Errorf("welcome url = %q, want a /doc/welcome-to- slug", welcome.URL)
		}

		doc, err := env.documents.GetByID(context.Background(), welcome.ID, col.ID)
		if err != nil {
			t.Fatalf("welcome document record missing: %v", err)
		}
		if doc.WordCount == 0 {
			t.Error("welcome document word count = 0, want counted template body")
		}
		if !strings.Contains(doc.Content, name) {
			t.Errorf("welcome body does not mention collection %q", name)
		}
	}

	// From the third collection on, the structure starts initialized but empty.
	third := env.createCollection(t, "team-1", "Archive", models.CollectionTypeTree)
	if third.Structure == nil || third.Structure.Len() != 0 {
		t.Fatalf("third collection structure = %v, want initialized empty", third.Structure)
	}
	if _, err := env.svc.Insert(context.Background(), &services.InsertRequest{
		CollectionID: third.ID,
		Node:         n("A"),
	}); err != nil {
		t.Fatalf("insert into empty-bootstrapped collection: %v", err)
	}
}

func TestCreateJournalCollectionStaysUninitialized(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedTeam(t, "team-1")

	col := env.createCollection(t, "team-1", "Daily Notes", models.CollectionTypeJournal)
	if col.Structure != nil {
		t.Fatalf("journal structure = %v, want uninitialized", col.Structure)
	}
	if got := env.documents.ids(); len(got) != 0 {
		t.Errorf("documents = %v, want none seeded for a journal", got)
	}

	_, err := env.svc.Insert(context.Background(), &services.InsertRequest{CollectionID: col.ID, Node: n("A")})
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("insert into journal error = %v, want ErrNotInitialized", err)
	}
}

func TestCreateCollectionEvent(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedTeam(t, "team-1")

	col := env.createCollection(t, "team-1", "Handbook", models.CollectionTypeTree)

	events := env.events.all()
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1; seeding is part of creation, not a structure mutation", len(events))
	}
	ev := events[0]
	if ev.Name != models.EventCollectionCreate {
		t.Errorf("event name = %q, want %q", ev.Name, models.EventCollectionCreate)
	}
	if ev.CollectionID != col.ID || ev.TeamID != "team-1" {
		t.Errorf("event keyed (%q, %q), want (%q, team-1)", ev.CollectionID, ev.TeamID, col.ID)
	}
	if ev.PriorStructure != nil {
		t.Errorf("prior structure = %v, want nil for a creation", ev.PriorStructure)
	}
	if ev.NewStructure.Len() != 1 {
		t.Errorf("new structure = %v, want the seeded welcome node", ev.NewStructure)
	}
	if got := ev.Extra[models.ExtraName]; got != "Handbook" {
		t.Errorf("name extra = %v, want Handbook", got)
	}
	if got := ev.Extra[models.ExtraType]; got != models.CollectionTypeTree {
		t.Errorf("type extra = %v, want tree", got)
	}
}

func TestCreateCollectionMissingTeam(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)

	_, err := env.colSvc.CreateCollection(context.Background(), &services.CreateCollectionRequest{
		TeamID: "ghost",
		Name:   "Handbook",
		Type:   models.CollectionTypeTree,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if evs := env.events.all(); len(evs) != 0 {
		t.Errorf("event count = %d, want 0", len(evs))
	}
}

func TestCreateCollectionValidation(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedTeam(t, "team-1")

	tests := []struct {
		name string
		req  *services.CreateCollectionRequest
	}{
		{
			name: "missing team",
			req:  &services.CreateCollectionRequest{Name: "Handbook", Type: models.CollectionTypeTree},
		},
		{
			name: "missing name",
			req:  &services.CreateCollectionRequest{TeamID: "team-1", Type: models.CollectionTypeTree},
		},
		{
			name: "unknown type",
			req:  &services.CreateCollectionRequest{TeamID: "team-1", Name: "Handbook", Type: "kanban"},
		},
		{
			name: "malformed color",
			req:  &services.CreateCollectionRequest{TeamID: "team-1", Name: "Handbook", Type: models.CollectionTypeTree, Color: "blue"},
		},
		{
			name: "name too long",
			req:  &services.CreateCollectionRequest{TeamID: "team-1", Name: strings.Repeat("x", 256), Type: models.CollectionTypeTree},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.colSvc.CreateCollection(context.Background(), tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpdateCollection(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedTeam(t, "team-1")
	col := env.createCollection(t, "team-1", "Handbook", models.CollectionTypeTree)
	priorEvents := len(env.events.all())

	name := "Company Handbook"
	color := "#4E5C6E"
	updated, err := env.colSvc.UpdateCollection(context.Background(), col.ID, &services.UpdateCollectionRequest{
		Name:  &name,
		Color: &color,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.Color != color {
		t.Errorf("updated = (%q, %q), want (%q, %q)", updated.Name, updated.Color, name, color)
	}
	// Untouched fields and the structure survive a partial update.
	if updated.Description != col.Description {
		t.Errorf("description changed to %q on a partial update", updated.Description)
	}
	stored, err := env.colSvc.GetCollection(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Name != name {
		t.Errorf("stored name = %q, want %q", stored.Name, name)
	}
	if stored.Structure.Len() != col.Structure.Len() {
		t.Errorf("structure changed by a metadata update")
	}

	events := env.events.all()
	if len(events) != priorEvents+1 {
		t.Fatalf("event count = %d, want %d", len(events), priorEvents+1)
	}
	ev := events[len(events)-1]
	if ev.Name != models.EventCollectionUpdate {
		t.Errorf("event name = %q, want %q", ev.Name, models.EventCollectionUpdate)
	}
	if got := ev.Extra[models.ExtraName]; got != name {
		t.Errorf("name extra = %v, want %q", got, name)
	}
}

func TestUpdateCollectionValidation(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedTeam(t, "team-1")
	col := env.createCollection(t, "team-1", "Handbook", models.CollectionTypeTree)

	empty := ""
	_, err := env.colSvc.UpdateCollection(context.Background(), col.ID, &services.UpdateCollectionRequest{Name: &empty})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestListCollections(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedTeam(t, "team-1")
	env.seedTeam(t, "team-2")
	env.createCollection(t, "team-1", "Handbook", models.CollectionTypeTree)
	env.createCollection(t, "team-1", "Daily Notes", models.CollectionTypeJournal)
	env.createCollection(t, "team-2", "Elsewhere", models.CollectionTypeTree)

	cols, err := env.colSvc.ListCollections(context.Background(), "team-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("collection count = %d, want 2", len(cols))
	}
	for _, c := range cols {
		if c.TeamID != "team-1" {
			t.Errorf("listed collection %s belongs to %s", c.ID, c.TeamID)
		}
	}
}

func TestDeleteCollection(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedTeam(t, "team-1")
	col := env.createCollection(t, "team-1", "Handbook", models.CollectionTypeTree)
	env.seedDocument(t, "extra", col.ID, nil)
	env.seedDocument(t, "other", "col-other", nil)
	priorEvents := len(env.events.all())

	if err := env.colSvc.DeleteCollection(context.Background(), col.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := env.colSvc.GetCollection(context.Background(), col.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get after delete error = %v, want ErrNotFound", err)
	}
	// The collection's documents go with it; unrelated collections keep theirs.
	for _, id := range env.documents.ids() {
		if id != "other" {
			t.Errorf("document %s survived the collection delete", id)
		}
	}

	events := env.events.all()
	if len(events) != priorEvents+1 {
		t.Fatalf("event count = %d, want %d", len(events), priorEvents+1)
	}
	ev := events[len(events)-1]
	if ev.Name != models.EventCollectionDelete {
		t.Errorf("event name = %q, want %q", ev.Name, models.EventCollectionDelete)
	}
	if ev.PriorStructure.Len() != 1 {
		t.Errorf("prior structure = %v, want the final tree snapshot", ev.PriorStructure)
	}
	if ev.NewStructure != nil {
		t.Errorf("new structure = %v, want nil after deletion", ev.NewStructure)
	}
}

func TestListEvents(t *testing.T) {
	env := newLifecycleEnv(t, time.Second)
	env.seedTeam(t, "team-1")
	col := env.createCollection(t, "team-1", "Handbook", models.CollectionTypeTree)
	other := env.createCollection(t, "team-1", "Runbooks", models.CollectionTypeTree)

	if _, err := env.svc.Insert(context.Background(), &services.InsertRequest{CollectionID: col.ID, Node: n("A")}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	name := "Company Handbook"
	if _, err := env.colSvc.UpdateCollection(context.Background(), col.ID, &services.UpdateCollectionRequest{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Newest first, scoped to the collection, truncated by the limit.
	feed, err := env.colSvc.ListEvents(context.Background(), col.ID, 2)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed length = %d, want 2", len(feed))
	}
	if feed[0].Name != models.EventCollectionUpdate || feed[1].Name != models.EventStructureInsert {
		t.Errorf("feed = [%q, %q], want newest first", feed[0].Name, feed[1].Name)
	}

	// A non-positive limit falls back to the default and returns the rest.
	feed, err = env.colSvc.ListEvents(context.Background(), col.ID, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(feed) != 3 {
		t.Fatalf("feed length = %d, want the collection's 3 events", len(feed))
	}
	for _, ev := range feed {
		if ev.CollectionID == other.ID {
			t.Errorf("feed leaked event %s from another collection", ev.Name)
		}
	}

	if _, err := env.colSvc.ListEvents(context.Background(), "", 10); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for a missing collection id", err)
	}
}

func TestDeleteCollectionWaitsForLock(t *testing.T) {
	env := newLifecycleEnv(t, 200*time.Millisecond)
	env.seedTeam(t, "team-1")
	col := env.createCollection(t, "team-1", "Handbook", models.CollectionTypeTree)

	lease, err := env.registry.Acquire(context.Background(), locks.StructureKey(col.ID))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lease.Release()

	if err := env.colSvc.DeleteCollection(context.Background(), col.ID); !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("error = %v, want ErrLockTimeout while a mutation holds the lock", err)
	}
	if _, err := env.colSvc.GetCollection(context.Background(), col.ID); err != nil {
		t.Fatalf("collection gone after timed-out delete: %v", err)
	}
}
