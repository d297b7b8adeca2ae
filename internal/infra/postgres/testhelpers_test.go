package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"weblogger/internal/domain/entry"
	"weblogger/internal/domain/weblog"
)

// setupPostgres connects to a PostgreSQL database for testing.
// Uses TEST_POSTGRES_URL environment variable if set, otherwise starts a
// throwaway container. Automatically runs migrations if needed.
func setupPostgres(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()
	terminate := func() {}

	connStr := os.Getenv("TEST_POSTGRES_URL")
	if connStr == "" {
		container, err := tcpostgres.RunContainer(ctx,
			testcontainers.WithImage("postgres:16"),
			tcpostgres.WithDatabase("weblogger"),
			tcpostgres.WithUsername("weblogger"),
			tcpostgres.WithPassword("weblogger"),
		)
		if err != nil {
			t.Skipf("skipping postgres integration test: %v", err)
		}
		terminate = func() { _ = container.Terminate(context.Background()) }

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		terminate()
		t.Skipf("failed to connect to test database: %v", err)
	}

	// Verify connection with retries (container might still be starting)
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		if i == 29 {
			pool.Close()
			terminate()
			t.Skipf("failed to ping test database after retries: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := applyTestMigrations(ctx, pool); err != nil {
		pool.Close()
		terminate()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	truncateAll(t, pool)

	return pool, func() {
		pool.Close()
		terminate()
	}
}

func truncateAll(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
TRUNCATE ping_queue, hit_counts, comments, tag_aggregates,
	entry_attributes, entry_tags, entries, categories, weblogs CASCADE`)
	require.NoError(t, err)
}

// applyTestMigrations runs the schema migrations from the migrations directory.
func applyTestMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Check if migrations already applied by looking for the last table
	var count int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = 'ping_queue'
	`).Scan(&count)
	if err == nil && count > 0 {
		// Migrations already applied
		return nil
	}

	// Find the migrations directory from current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Try to find migrations directory starting from cwd and going up
	migrationsDir := filepath.Join(cwd, "migrations")
	for i := 0; i < 5; i++ {
		if _, err := os.Stat(migrationsDir); err == nil {
			break
		}
		cwd = filepath.Dir(cwd)
		migrationsDir = filepath.Join(cwd, "migrations")
	}

	return executeSQLFile(ctx, pool, filepath.Join(migrationsDir, "000001_init.up.sql"))
}

// executeSQLFile reads and executes a SQL file.
func executeSQLFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	statements := splitStatements(string(content))
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec %s: %w", path, err)
		}
	}
	return nil
}

// splitStatements splits SQL content into individual statements.
func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, builder.String())
			builder.Reset()
		}
	}
	if s := strings.TrimSpace(builder.String()); s != "" {
		statements = append(statements, s)
	}
	return statements
}

func mustCreateWeblog(t *testing.T, pool *pgxpool.Pool, handle string) *weblog.Weblog {
	t.Helper()
	w, err := weblog.New(weblog.Params{
		Handle:   handle,
		Name:     "Blog " + handle,
		Locale:   "en_US",
		TimeZone: "UTC",
		Enabled:  true,
		Active:   true,
	})
	require.NoError(t, err)
	repo := NewWeblogRepository(pool)
	require.NoError(t, repo.Save(context.Background(), w))
	return w
}

func mustCreateEntry(t *testing.T, pool *pgxpool.Pool, w *weblog.Weblog, anchor string, status entry.Status, pubTime time.Time) *entry.Entry {
	t.Helper()
	params := entry.Params{
		ID:       uuid.New(),
		WeblogID: w.ID,
		Anchor:   anchor,
		Title:    anchor,
		Text:     "text for " + anchor,
		Status:   status,
	}
	if status == entry.StatusPublished {
		params.PubTime = &pubTime
	}
	params.UpdateTime = pubTime
	e, err := entry.New(params)
	require.NoError(t, err)
	repo := NewEntryRepository(pool)
	require.NoError(t, repo.Save(context.Background(), e))
	return e
}
