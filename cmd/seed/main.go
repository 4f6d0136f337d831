package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"arbor/internal/config"
	"arbor/internal/domain/models"
	"arbor/internal/domain/services"
	"arbor/internal/locks"
	"arbor/internal/repository/postgres"
	"arbor/internal/service/doctree"
	"arbor/internal/templates"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// demoTeamID is the fixed team every seeding run targets, so repeated runs
// reset the same data instead of piling up teams.
const demoTeamID = "6f1f917c-2f74-4f2f-9f3a-aa2e62c0a1d0"

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo data")
	clearData := flag.Bool("clear-data", false, "Clear the demo team's data (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger. Debug mode lowers the level and tees the JSON log into a
	// timestamped file under logs/, keeping the last few runs around.
	logOut := io.Writer(os.Stdout)
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
		if f, err := config.SetupLogFile("logs", 5); err != nil {
			log.Printf("Warning: could not set up log file: %v", err)
		} else {
			defer f.Close()
			logOut = io.MultiWriter(os.Stdout, f)
		}
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	// Exit early if schema-only mode
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		log.Println("🧹 Clearing demo team data...")
		if err := clearTeamData(ctx, pool, tables, demoTeamID); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Ensure the demo team exists
	if err := ensureDemoTeam(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure demo team: %v", err)
	}

	// Start from a clean slate so re-runs stay deterministic
	log.Println("⚠️  Clearing existing demo team data...")
	if err := clearTeamData(ctx, pool, tables, demoTeamID); err != nil {
		log.Printf("Warning: Could not clear data: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	collectionRepo := postgres.NewCollectionRepository(repoConfig)
	documentRepo := postgres.NewDocumentRepository(repoConfig)
	teamRepo := postgres.NewTeamRepository(repoConfig)
	eventRepo := postgres.NewEventRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Create services
	registry := locks.NewRegistry(cfg.LockWait)
	templateRegistry, err := templates.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load document templates: %v", err)
	}
	structureService := doctree.NewStructureService(collectionRepo, documentRepo, eventRepo, txManager, registry, logger)
	collectionService := doctree.NewCollectionService(collectionRepo, documentRepo, teamRepo, eventRepo, txManager, registry, templateRegistry, logger)
	documentService := doctree.NewDocumentService(documentRepo, collectionRepo, structureService, txManager, registry, logger)

	// Seed collections through the service layer so the bootstrap policy,
	// slug generation and audit trail all run for real.
	log.Println("📝 Seeding collections and documents...")
	if err := seedDemoData(ctx, collectionService, documentService, structureService); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}

	log.Println("🎉 Seeding complete!")
}

// seedDemoData creates the demo team's collections and documents. The first
// two tree collections pick up welcome documents, the third bootstraps
// empty, and the journal stays uninitialized.
func seedDemoData(
	ctx context.Context,
	collections services.CollectionService,
	documents services.DocumentService,
	structure services.StructureService,
) error {
	handbook, err := collections.CreateCollection(ctx, &services.CreateCollectionRequest{
		TeamID:      demoTeamID,
		Name:        "Product Handbook",
		Description: "How we build and ship the product",
		Color:       "#2D7FF9",
		Type:        models.CollectionTypeTree,
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Created collection: %s (welcome: %d node)", handbook.Name, handbook.Structure.Len())

	wiki, err := collections.CreateCollection(ctx, &services.CreateCollectionRequest{
		TeamID:      demoTeamID,
		Name:        "Engineering Wiki",
		Description: "Runbooks, architecture notes and on-call lore",
		Color:       "#1DB954",
		Type:        models.CollectionTypeTree,
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Created collection: %s (welcome: %d node)", wiki.Name, wiki.Structure.Len())

	archive, err := collections.CreateCollection(ctx, &services.CreateCollectionRequest{
		TeamID: demoTeamID,
		Name:   "Release Archive",
		Color:  "#8E8E93",
		Type:   models.CollectionTypeTree,
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Created collection: %s (bootstrapped empty)", archive.Name)

	journal, err := collections.CreateCollection(ctx, &services.CreateCollectionRequest{
		TeamID: demoTeamID,
		Name:   "Daily Notes",
		Type:   models.CollectionTypeJournal,
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Created collection: %s (journal, no structure)", journal.Name)

	// A small handbook hierarchy: two top-level chapters, one nested page.
	onboarding, err := documents.CreateDocument(ctx, &services.CreateDocumentRequest{
		CollectionID: handbook.ID,
		Title:        "Onboarding",
		Content: `# Onboarding

Everything a new teammate needs in their first month.

- Accounts and access
- Who to ask about what
- How we run projects`,
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Created document: %s (words: %d)", onboarding.Title, onboarding.WordCount)

	benefits, err := documents.CreateDocument(ctx, &services.CreateDocumentRequest{
		CollectionID: handbook.ID,
		Title:        "Benefits",
		Content: `# Benefits

Health cover, learning budget and the sabbatical policy, with links to the
enrollment forms.`,
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Created document: %s (words: %d)", benefits.Title, benefits.WordCount)

	checklist, err := documents.CreateDocument(ctx, &services.CreateDocumentRequest{
		CollectionID:     handbook.ID,
		ParentDocumentID: &onboarding.ID,
		Title:            "First Week Checklist",
		Content: `# First Week Checklist

1. Laptop setup and repository access
2. Meet your onboarding buddy
3. Ship one small change`,
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Created document: %s (under %s)", checklist.Title, onboarding.Title)

	// Reorder so Benefits leads the handbook; shows up in the audit feed as
	// a structure.move event.
	if _, err := structure.Move(ctx, &services.MoveRequest{
		CollectionID: handbook.ID,
		DocumentID:   benefits.ID,
		Index:        0,
	}); err != nil {
		return err
	}
	log.Printf("✅ Moved %s to the top of %s", benefits.Title, handbook.Name)

	// Read the audit trail back so a seeding run doubles as a smoke test of
	// the event feed.
	feed, err := collections.ListEvents(ctx, handbook.ID, 0)
	if err != nil {
		return err
	}
	log.Printf("📜 Audit feed for %s (%d events, newest first):", handbook.Name, len(feed))
	for _, ev := range feed {
		log.Printf("   • %s", ev.Name)
	}

	return nil
}

// ensureDemoTeam creates the demo team if it doesn't exist
func ensureDemoTeam(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	query := `
		INSERT INTO ` + tables.Teams + ` (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := pool.Exec(ctx, query, demoTeamID, "Demo Team", time.Now())
	if err != nil {
		return err
	}
	return nil
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Create teams table
	createTeams := `
		CREATE TABLE IF NOT EXISTS ` + tables.Teams + ` (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createTeams); err != nil {
		return err
	}

	// Create collections table. document_structure stays NULL until the
	// structure is initialized; '[]' means initialized but empty.
	createCollections := `
		CREATE TABLE IF NOT EXISTS ` + tables.Collections + ` (
			id UUID PRIMARY KEY,
			team_id UUID NOT NULL REFERENCES ` + tables.Teams + `(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			document_structure JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createCollections); err != nil {
		return err
	}

	// Create documents table. parent_document_id carries no foreign key on
	// purpose: cascade deletion is the service layer's job, parent first,
	// and detached documents may outlive their parent's node.
	createDocuments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id UUID PRIMARY KEY,
			collection_id UUID NOT NULL REFERENCES ` + tables.Collections + `(id) ON DELETE CASCADE,
			team_id UUID NOT NULL,
			parent_document_id UUID,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			word_count INTEGER DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createDocuments); err != nil {
		return err
	}

	// Create events table. Append-only, no foreign keys: the audit feed
	// outlives whatever it describes.
	createEvents := `
		CREATE TABLE IF NOT EXISTS ` + tables.Events + ` (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			collection_id UUID NOT NULL,
			team_id UUID NOT NULL,
			document_id UUID,
			parent_document_id UUID,
			prior_structure JSONB,
			new_structure JSONB,
			extra JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createEvents); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `collections_team ON ` + tables.Collections + `(team_id) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_collection ON ` + tables.Documents + `(collection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_parent ON ` + tables.Documents + `(collection_id, parent_document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `events_collection ON ` + tables.Events + `(collection_id, created_at DESC)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Events,
		tables.Documents,
		tables.Collections,
		tables.Teams,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearTeamData removes a team's events, documents and collections, keeping
// the team row and the schema
func clearTeamData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, teamID string) error {
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.Events+" WHERE team_id = $1", teamID)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, "DELETE FROM "+tables.Documents+" WHERE team_id = $1", teamID)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, "DELETE FROM "+tables.Collections+" WHERE team_id = $1", teamID)
	if err != nil {
		return err
	}

	return nil
}
