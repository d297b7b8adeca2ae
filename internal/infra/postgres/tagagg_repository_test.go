package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weblogger/internal/domain/tagagg"
)

func TestTagAggregateRepository_NewestPrefersLastUsed(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewTagAggregateRepository(pool)

	now := time.Now().UTC()
	old := &tagagg.Aggregate{Name: "golang", WeblogID: &blog.ID, Total: 3, LastUsed: now.Add(-time.Hour)}
	fresh := &tagagg.Aggregate{Name: "golang", WeblogID: &blog.ID, Total: 5, LastUsed: now}
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, fresh))

	got, err := repo.Newest(ctx, "golang", &blog.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 5, got.Total)

	// sitewide scope is separate
	sitewide, err := repo.Newest(ctx, "golang", nil)
	require.NoError(t, err)
	require.Nil(t, sitewide)
}

func TestTagAggregateRepository_Sweep(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewTagAggregateRepository(pool)

	now := time.Now().UTC()
	require.NoError(t, repo.Save(ctx, &tagagg.Aggregate{Name: "alive", WeblogID: &blog.ID, Total: 2, LastUsed: now}))
	require.NoError(t, repo.Save(ctx, &tagagg.Aggregate{Name: "dead", WeblogID: &blog.ID, Total: 0, LastUsed: now}))
	require.NoError(t, repo.Save(ctx, &tagagg.Aggregate{Name: "negative", Total: -1, LastUsed: now}))

	swept, err := repo.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), swept)

	got, err := repo.Newest(ctx, "dead", &blog.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTagAggregateRepository_PopularSumsDuplicates(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewTagAggregateRepository(pool)

	now := time.Now().UTC()
	require.NoError(t, repo.Save(ctx, &tagagg.Aggregate{Name: "golang", WeblogID: &blog.ID, Total: 3, LastUsed: now.Add(-time.Minute)}))
	require.NoError(t, repo.Save(ctx, &tagagg.Aggregate{Name: "golang", WeblogID: &blog.ID, Total: 2, LastUsed: now}))
	require.NoError(t, repo.Save(ctx, &tagagg.Aggregate{Name: "web", WeblogID: &blog.ID, Total: 1, LastUsed: now}))
	require.NoError(t, repo.Save(ctx, &tagagg.Aggregate{Name: "sitewide-only", Total: 9, LastUsed: now}))

	stats, err := repo.Popular(ctx, &blog.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, "golang", stats[0].Name)
	require.Equal(t, 5, stats[0].Count)
	require.Equal(t, "web", stats[1].Name)

	site, err := repo.Popular(ctx, nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, site, 1)
	require.Equal(t, "sitewide-only", site[0].Name)
}
