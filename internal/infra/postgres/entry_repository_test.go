package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	domainComment "weblogger/internal/domain/comment"
	domainEntry "weblogger/internal/domain/entry"
)

func TestEntryRepository_SaveAndGet(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewEntryRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	e, err := domainEntry.New(domainEntry.Params{
		ID:         uuid.New(),
		WeblogID:   blog.ID,
		Anchor:     "first-post",
		Title:      "First Post",
		Text:       "hello",
		Status:     domainEntry.StatusPublished,
		Creator:    "alice",
		PubTime:    &now,
		UpdateTime: now,
	})
	require.NoError(t, err)
	e.AddTag("Go", blog)
	e.Attributes = append(e.Attributes, domainEntry.Attribute{
		EntryID: e.ID,
		Name:    "origin",
		Value:   "import",
	})
	require.NoError(t, repo.Save(ctx, e))

	got, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, "First Post", got.Title)
	require.Len(t, got.Tags, 1)
	require.Equal(t, "go", got.Tags[0].Name)
	require.Len(t, got.Attributes, 1)
	require.Equal(t, "import", got.Attributes[0].Value)

	_, err = repo.Get(ctx, uuid.New())
	require.ErrorIs(t, err, domainEntry.ErrNotFound)
}

func TestEntryRepository_DeleteAttribute(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewEntryRepository(pool)

	now := time.Now().UTC()
	e := mustCreateEntry(t, pool, blog, "annotated", domainEntry.StatusPublished, now)
	e.Attributes = []domainEntry.Attribute{
		{EntryID: e.ID, Name: "pinned", Value: "true"},
		{EntryID: e.ID, Name: "summary", Value: "short"},
	}
	require.NoError(t, repo.Save(ctx, e))

	require.NoError(t, repo.DeleteAttribute(ctx, e.ID, "pinned"))

	got, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Attributes, 1)
	require.Equal(t, "summary", got.Attributes[0].Name)
}

func TestEntryRepository_GetByAnchor(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewEntryRepository(pool)

	now := time.Now().UTC()
	mustCreateEntry(t, pool, blog, "my-post", domainEntry.StatusPublished, now)

	got, err := repo.GetByAnchor(ctx, blog.ID, "my-post")
	require.NoError(t, err)
	require.Equal(t, "my-post", got.Anchor)

	_, err = repo.GetByAnchor(ctx, blog.ID, "missing")
	require.ErrorIs(t, err, domainEntry.ErrNotFound)

	exists, err := repo.AnchorExists(ctx, blog.ID, "my-post")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.AnchorExists(ctx, blog.ID, "my-post1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEntryRepository_ListAndCount(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blogA := mustCreateWeblog(t, pool, "alpha")
	blogB := mustCreateWeblog(t, pool, "beta")
	repo := NewEntryRepository(pool)

	now := time.Now().UTC()
	mustCreateEntry(t, pool, blogA, "a-one", domainEntry.StatusPublished, now.Add(-2*time.Hour))
	mustCreateEntry(t, pool, blogA, "a-two", domainEntry.StatusPublished, now.Add(-1*time.Hour))
	mustCreateEntry(t, pool, blogA, "a-draft", domainEntry.StatusDraft, now)
	mustCreateEntry(t, pool, blogB, "b-one", domainEntry.StatusPublished, now)

	published, err := repo.List(ctx, domainEntry.SearchCriteria{
		WeblogID: blogA.ID,
		Status:   domainEntry.StatusPublished,
	})
	require.NoError(t, err)
	require.Len(t, published, 2)
	// reverse chronological by default
	require.Equal(t, "a-two", published[0].Anchor)
	require.Equal(t, "a-one", published[1].Anchor)

	// sitewide view hides drafts
	sitewide, err := repo.List(ctx, domainEntry.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, sitewide, 3)

	count, err := repo.Count(ctx, domainEntry.SearchCriteria{WeblogID: blogA.ID})
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	total, err := repo.CountPublished(ctx, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	forBlog, err := repo.CountPublished(ctx, blogA.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), forBlog)
}

func TestEntryRepository_ListByTag(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewEntryRepository(pool)

	now := time.Now().UTC()
	tagged := mustCreateEntry(t, pool, blog, "tagged", domainEntry.StatusPublished, now)
	tagged.AddTag("golang", blog)
	require.NoError(t, repo.Save(ctx, tagged))
	mustCreateEntry(t, pool, blog, "plain", domainEntry.StatusPublished, now)

	got, err := repo.List(ctx, domainEntry.SearchCriteria{
		WeblogID: blog.ID,
		Tags:     []string{"GoLang"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "tagged", got[0].Anchor)
}

func TestEntryRepository_Neighbor(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewEntryRepository(pool)

	now := time.Now().UTC()
	first := mustCreateEntry(t, pool, blog, "first", domainEntry.StatusPublished, now.Add(-2*time.Hour))
	second := mustCreateEntry(t, pool, blog, "second", domainEntry.StatusPublished, now.Add(-1*time.Hour))

	next, err := repo.Neighbor(ctx, first, uuid.Nil, "", true)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, second.ID, next.ID)

	prev, err := repo.Neighbor(ctx, second, uuid.Nil, "", false)
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.Equal(t, first.ID, prev.ID)

	none, err := repo.Neighbor(ctx, second, uuid.Nil, "", true)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestEntryRepository_DeleteTag(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewEntryRepository(pool)

	now := time.Now().UTC()
	e := mustCreateEntry(t, pool, blog, "tagged", domainEntry.StatusPublished, now)
	e.AddTag("golang", blog)
	require.NoError(t, repo.Save(ctx, e))

	got, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)

	require.NoError(t, repo.DeleteTag(ctx, got.Tags[0].ID))

	got, err = repo.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Empty(t, got.Tags)
}

func TestEntryRepository_MostCommented(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	entryRepo := NewEntryRepository(pool)
	commentRepo := NewCommentRepository(pool)

	now := time.Now().UTC()
	busy := mustCreateEntry(t, pool, blog, "busy", domainEntry.StatusPublished, now)
	quiet := mustCreateEntry(t, pool, blog, "quiet", domainEntry.StatusPublished, now)

	for i := 0; i < 3; i++ {
		c, err := domainComment.New(domainComment.Params{
			EntryID:  busy.ID,
			WeblogID: blog.ID,
			Content:  "approved",
			Status:   domainComment.StatusApproved,
			PostTime: now,
		})
		require.NoError(t, err)
		require.NoError(t, commentRepo.Save(ctx, c))
	}
	spam, err := domainComment.New(domainComment.Params{
		EntryID:  quiet.ID,
		WeblogID: blog.ID,
		Content:  "spam",
		Status:   domainComment.StatusSpam,
		PostTime: now,
	})
	require.NoError(t, err)
	require.NoError(t, commentRepo.Save(ctx, spam))

	ranked, err := entryRepo.MostCommented(ctx, blog.ID, time.Time{}, now.Add(time.Hour), 0, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	require.Equal(t, busy.ID, ranked[0].EntryID)
	require.Equal(t, "myblog", ranked[0].WeblogHandle)
	require.Equal(t, int64(3), ranked[0].Count)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()
	ctx := context.Background()

	blog := mustCreateWeblog(t, pool, "myblog")
	repo := NewEntryRepository(pool)
	tx := NewTxManager(pool)

	boom := errors.New("boom")
	now := time.Now().UTC()
	e, err := domainEntry.New(domainEntry.Params{
		WeblogID:   blog.ID,
		Anchor:     "doomed",
		Title:      "Doomed",
		Status:     domainEntry.StatusPublished,
		PubTime:    &now,
		UpdateTime: now,
	})
	require.NoError(t, err)

	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repo.Save(ctx, e); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.Get(ctx, e.ID)
	require.ErrorIs(t, err, domainEntry.ErrNotFound)
}
