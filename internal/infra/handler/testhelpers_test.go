package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	domainComment "weblogger/internal/domain/comment"
	domainEntry "weblogger/internal/domain/entry"
	domainHitcount "weblogger/internal/domain/hitcount"
	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/tagagg"
	"weblogger/internal/domain/weblog"
	"weblogger/internal/infra/memory"
	usecaseComment "weblogger/internal/usecase/comment"
	usecaseEntry "weblogger/internal/usecase/entry"
	usecaseHitcount "weblogger/internal/usecase/hitcount"
	usecaseTag "weblogger/internal/usecase/tag"
)

// testServer wraps httptest.Server for handler testing through the real
// router.
type testServer struct {
	*httptest.Server
}

func newTestServer(cfg RouterConfig) *testServer {
	if cfg.APIBasePath == "" {
		cfg.APIBasePath = "/api/v1"
	}
	return &testServer{Server: httptest.NewServer(NewRouter(cfg))}
}

func apiPath(route string) string {
	return "/api/v1" + route
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

func (ts *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build %s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Errorf("status = %d, want %d", resp.StatusCode, want)
	}
}

// Fakes

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeWeblogRepo struct {
	blogs map[string]*weblog.Weblog
	cats  map[uuid.UUID]*weblog.Category
}

func newFakeWeblogRepo(blogs ...*weblog.Weblog) *fakeWeblogRepo {
	r := &fakeWeblogRepo{blogs: map[string]*weblog.Weblog{}, cats: map[uuid.UUID]*weblog.Category{}}
	for _, b := range blogs {
		r.blogs[b.Handle] = b
	}
	return r
}

func (f *fakeWeblogRepo) Get(ctx context.Context, id weblog.ID) (*weblog.Weblog, error) {
	for _, b := range f.blogs {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: id %s", weblog.ErrNotFound, id)
}

func (f *fakeWeblogRepo) GetByHandle(ctx context.Context, handle string) (*weblog.Weblog, error) {
	b, ok := f.blogs[handle]
	if !ok {
		return nil, fmt.Errorf("%w: handle %q", weblog.ErrNotFound, handle)
	}
	return b, nil
}

func (f *fakeWeblogRepo) Save(ctx context.Context, blog *weblog.Weblog) error {
	f.blogs[blog.Handle] = blog
	return nil
}

func (f *fakeWeblogRepo) Touch(ctx context.Context, id weblog.ID, now time.Time) error {
	return nil
}

func (f *fakeWeblogRepo) GetCategory(ctx context.Context, id uuid.UUID) (*weblog.Category, error) {
	c, ok := f.cats[id]
	if !ok {
		return nil, fmt.Errorf("%w: category %s", weblog.ErrNotFound, id)
	}
	return c, nil
}

func (f *fakeWeblogRepo) GetCategoryByName(ctx context.Context, weblogID weblog.ID, name string) (*weblog.Category, error) {
	for _, c := range f.cats {
		if c.WeblogID == weblogID && c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: category %q", weblog.ErrNotFound, name)
}

func (f *fakeWeblogRepo) SaveCategory(ctx context.Context, cat *weblog.Category) error {
	f.cats[cat.ID] = cat
	return nil
}

type fakeEntryRepo struct {
	list []*domainEntry.Entry
}

func (f *fakeEntryRepo) Get(ctx context.Context, id domainEntry.ID) (*domainEntry.Entry, error) {
	for _, e := range f.list {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: id %s", domainEntry.ErrNotFound, id)
}

func (f *fakeEntryRepo) GetByAnchor(ctx context.Context, weblogID weblog.ID, anchor string) (*domainEntry.Entry, error) {
	for _, e := range f.list {
		if e.WeblogID == weblogID && e.Anchor == anchor {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: anchor %q", domainEntry.ErrNotFound, anchor)
}

func (f *fakeEntryRepo) AnchorExists(ctx context.Context, weblogID weblog.ID, anchor string) (bool, error) {
	_, err := f.GetByAnchor(ctx, weblogID, anchor)
	return err == nil, nil
}

func (f *fakeEntryRepo) List(ctx context.Context, criteria domainEntry.SearchCriteria) ([]*domainEntry.Entry, error) {
	return f.list, nil
}

func (f *fakeEntryRepo) Count(ctx context.Context, criteria domainEntry.SearchCriteria) (int64, error) {
	return int64(len(f.list)), nil
}

func (f *fakeEntryRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeEntryRepo) CountPublished(ctx context.Context, weblogID weblog.ID) (int64, error) {
	return int64(len(f.list)), nil
}

func (f *fakeEntryRepo) Neighbor(ctx context.Context, current *domainEntry.Entry, categoryID uuid.UUID, locale string, next bool) (*domainEntry.Entry, error) {
	return nil, nil
}

func (f *fakeEntryRepo) Save(ctx context.Context, e *domainEntry.Entry) error { return nil }

func (f *fakeEntryRepo) Delete(ctx context.Context, id domainEntry.ID) error { return nil }

func (f *fakeEntryRepo) DeleteAttributes(ctx context.Context, entryID domainEntry.ID) error {
	return nil
}

func (f *fakeEntryRepo) DeleteAttribute(ctx context.Context, entryID domainEntry.ID, name string) error {
	return nil
}

func (f *fakeEntryRepo) DeleteTag(ctx context.Context, tagID uuid.UUID) error { return nil }

func (f *fakeEntryRepo) MostCommented(ctx context.Context, weblogID weblog.ID, startDate, endDate time.Time, offset, length int) ([]repository.CommentedEntry, error) {
	return nil, nil
}

type fakeCommentRepo struct {
	list []*domainComment.Comment

	deleted int
}

func (f *fakeCommentRepo) Get(ctx context.Context, id domainComment.ID) (*domainComment.Comment, error) {
	for _, c := range f.list {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCommentRepo) List(ctx context.Context, criteria domainComment.SearchCriteria) ([]*domainComment.Comment, error) {
	return f.list, nil
}

func (f *fakeCommentRepo) Save(ctx context.Context, c *domainComment.Comment) error { return nil }

func (f *fakeCommentRepo) Delete(ctx context.Context, id domainComment.ID) error {
	f.deleted++
	return nil
}

func (f *fakeCommentRepo) CountApproved(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeCommentRepo) CountApprovedForWeblog(ctx context.Context, weblogID weblog.ID) (int64, error) {
	return 0, nil
}

type fakeAggRepo struct {
	popular []tagagg.TagStat
}

func (f *fakeAggRepo) Newest(ctx context.Context, name string, weblogID *weblog.ID) (*tagagg.Aggregate, error) {
	return nil, nil
}

func (f *fakeAggRepo) Save(ctx context.Context, agg *tagagg.Aggregate) error { return nil }

func (f *fakeAggRepo) Sweep(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeAggRepo) Popular(ctx context.Context, weblogID *weblog.ID, offset, limit int) ([]tagagg.TagStat, error) {
	return f.popular, nil
}

type fakeHitRepo struct {
	counts map[weblog.ID]*domainHitcount.HitCount
	hot    []domainHitcount.HotWeblog
}

func newFakeHitRepo() *fakeHitRepo {
	return &fakeHitRepo{counts: map[weblog.ID]*domainHitcount.HitCount{}}
}

func (f *fakeHitRepo) Get(ctx context.Context, weblogID weblog.ID) (*domainHitcount.HitCount, error) {
	return f.counts[weblogID], nil
}

func (f *fakeHitRepo) Save(ctx context.Context, hc *domainHitcount.HitCount) error {
	f.counts[hc.WeblogID] = hc
	return nil
}

func (f *fakeHitRepo) ResetAll(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeHitRepo) Hot(ctx context.Context, since time.Time, offset, length int) ([]domainHitcount.HotWeblog, error) {
	return f.hot, nil
}

type fakeTagCounter struct{}

func (fakeTagCounter) UpdateTagCount(ctx context.Context, name string, weblogID weblog.ID, amount int) error {
	return nil
}

func (fakeTagCounter) RemoveEntryTag(ctx context.Context, tag domainEntry.Tag, published bool) error {
	return nil
}

// Test data factories

func newTestWeblog(handle string) *weblog.Weblog {
	blog, err := weblog.New(weblog.Params{
		Handle:   handle,
		Name:     "Test Weblog",
		Locale:   "en-US",
		TimeZone: "UTC",
		Enabled:  true,
		Active:   true,
	})
	if err != nil {
		panic(err)
	}
	return blog
}

func newPublishedEntry(blog *weblog.Weblog, title, anchor string) *domainEntry.Entry {
	now := time.Now().UTC()
	e, err := domainEntry.New(domainEntry.Params{
		WeblogID: blog.ID,
		Anchor:   anchor,
		Title:    title,
		Text:     "body",
		Status:   domainEntry.StatusPublished,
		Creator:  "alice",
		PubTime:  &now,
	})
	if err != nil {
		panic(err)
	}
	return e
}

// Service builders

func newTestEntryService(entries *fakeEntryRepo, weblogs *fakeWeblogRepo) *usecaseEntry.Service {
	return usecaseEntry.NewService(entries, weblogs, &fakeCommentRepo{}, fakeTagCounter{}, nil, fakeTx{}, memory.NewAnchorCache(), nil)
}

func newTestCommentService(comments *fakeCommentRepo, weblogs *fakeWeblogRepo) *usecaseComment.Service {
	return usecaseComment.NewService(comments, weblogs, fakeTx{}, nil)
}

func newTestTagService(aggs *fakeAggRepo) *usecaseTag.Service {
	return usecaseTag.NewService(aggs, &fakeEntryRepo{}, fakeTx{}, nil, nil)
}

func newTestHitcountService(hits *fakeHitRepo) *usecaseHitcount.Service {
	return usecaseHitcount.NewService(hits, fakeTx{}, nil, nil)
}
