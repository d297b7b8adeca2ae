package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	domainHitcount "weblogger/internal/domain/hitcount"
)

func TestHitCountHandlerIncrementDefaultsToOne(t *testing.T) {
	blog := newTestWeblog("techblog")
	weblogs := newFakeWeblogRepo(blog)
	hits := newFakeHitRepo()

	ts := newTestServer(RouterConfig{
		HitCountHandler: NewHitCountHandler(newTestHitcountService(hits), weblogs, 1),
	})
	defer ts.Close()

	resp := ts.do(t, http.MethodPost, apiPath("/weblogs/techblog/hits"), "")
	defer resp.Body.Close()
	assertStatus(t, resp, http.StatusAccepted)
	require.Equal(t, 1, hits.counts[blog.ID].DailyHits)
}

func TestHitCountHandlerIncrementWithAmount(t *testing.T) {
	blog := newTestWeblog("techblog")
	weblogs := newFakeWeblogRepo(blog)
	hits := newFakeHitRepo()

	ts := newTestServer(RouterConfig{
		HitCountHandler: NewHitCountHandler(newTestHitcountService(hits), weblogs, 1),
	})
	defer ts.Close()

	resp := ts.do(t, http.MethodPost, apiPath("/weblogs/techblog/hits"), `{"amount":5}`)
	defer resp.Body.Close()
	assertStatus(t, resp, http.StatusAccepted)
	require.Equal(t, 5, hits.counts[blog.ID].DailyHits)
}

func TestHitCountHandlerIncrementZeroAmount(t *testing.T) {
	blog := newTestWeblog("techblog")
	weblogs := newFakeWeblogRepo(blog)

	ts := newTestServer(RouterConfig{
		HitCountHandler: NewHitCountHandler(newTestHitcountService(newFakeHitRepo()), weblogs, 1),
	})
	defer ts.Close()

	resp := ts.do(t, http.MethodPost, apiPath("/weblogs/techblog/hits"), `{"amount":0}`)
	defer resp.Body.Close()
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestHitCountHandlerHotWeblogs(t *testing.T) {
	hits := newFakeHitRepo()
	hits.hot = []domainHitcount.HotWeblog{
		{Handle: "techblog", Name: "Tech Blog", DailyHits: 42},
	}
	weblogs := newFakeWeblogRepo()

	ts := newTestServer(RouterConfig{
		HitCountHandler: NewHitCountHandler(newTestHitcountService(hits), weblogs, 1),
	})
	defer ts.Close()

	resp := ts.get(t, apiPath("/weblogs/hot?since_days=2&limit=5"))
	var result hotWeblogsResponse
	decodeJSON(t, resp, &result)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, result.Weblogs, 1)
	require.Equal(t, "techblog", result.Weblogs[0].Handle)
	require.Equal(t, 2, result.SinceDays)
	require.Equal(t, 5, result.Limit)
}
