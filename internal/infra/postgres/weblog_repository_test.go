package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"weblogger/internal/domain/weblog"
)

func TestWeblogRepository_SaveAndGet(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	repo := NewWeblogRepository(pool)
	blog := mustCreateWeblog(t, pool, "myblog")

	got, err := repo.Get(ctx, blog.ID)
	require.NoError(t, err)
	require.Equal(t, "myblog", got.Handle)
	require.True(t, got.Enabled)

	byHandle, err := repo.GetByHandle(ctx, "myblog")
	require.NoError(t, err)
	require.Equal(t, blog.ID, byHandle.ID)

	_, err = repo.GetByHandle(ctx, "missing")
	require.ErrorIs(t, err, weblog.ErrNotFound)
}

func TestWeblogRepository_Touch(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	repo := NewWeblogRepository(pool)
	blog := mustCreateWeblog(t, pool, "myblog")

	before, err := repo.Get(ctx, blog.ID)
	require.NoError(t, err)

	later := time.Now().UTC().Add(time.Hour)
	require.NoError(t, repo.Touch(ctx, blog.ID, later))

	after, err := repo.Get(ctx, blog.ID)
	require.NoError(t, err)
	require.True(t, after.LastModified.After(before.LastModified))

	// a stale touch never rewinds the timestamp
	require.NoError(t, repo.Touch(ctx, blog.ID, later.Add(-2*time.Hour)))
	again, err := repo.Get(ctx, blog.ID)
	require.NoError(t, err)
	require.Equal(t, after.LastModified, again.LastModified)
}

func TestWeblogRepository_Categories(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	repo := NewWeblogRepository(pool)
	blog := mustCreateWeblog(t, pool, "myblog")

	cat := &weblog.Category{ID: uuid.New(), WeblogID: blog.ID, Name: "Tech"}
	require.NoError(t, repo.SaveCategory(ctx, cat))

	got, err := repo.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	require.Equal(t, "Tech", got.Name)

	byName, err := repo.GetCategoryByName(ctx, blog.ID, "Tech")
	require.NoError(t, err)
	require.Equal(t, cat.ID, byName.ID)

	_, err = repo.GetCategoryByName(ctx, blog.ID, "Nope")
	require.ErrorIs(t, err, weblog.ErrNotFound)
}
