package codeforces

import (
	"cftracker/internal/models"
	"cftracker/internal/structures"
	"cftracker/internal/testutil"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) all() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func testConfig(baseURL string) *structures.Config {
	return &structures.Config{
		Codeforces: structures.CodeforcesConfig{
			BaseURL:        baseURL,
			MinInterval:    2 * time.Second,
			MaxRetries:     3,
			RetryDelay:     5 * time.Second,
			Timeout:        5 * time.Second,
			MaxSubmissions: 50000,
			RetryNotFound:  true,
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*structures.Config)) (*Client, *sleepRecorder, *testutil.MockMetrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := testConfig(srv.URL)
	for _, m := range mutate {
		m(conf)
	}
	metrics := &testutil.MockMetrics{}
	c := NewClient(conf, &testutil.MockLogger{}, metrics)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	return c, rec, metrics
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestRequest_Success(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	c, _, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotUA = r.URL.Path, r.URL.RawQuery, r.UserAgent()
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[1,2,3]}`)
	})

	payload, err := c.Request(context.Background(), "contest.list", url.Values{"gym": {"false"}})

	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(payload))
	assert.Equal(t, "/contest.list", gotPath)
	assert.Equal(t, "gym=false", gotQuery)
	assert.Equal(t, defaultUserAgent, gotUA)
	assert.Equal(t, 1, metrics.UpstreamRequests["contest.list:ok"])
}

func TestRequest_503RetriesThenTransient(t *testing.T) {
	var hits atomic.Int32
	c, rec, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"status":"FAILED","comment":"busy"}`)
	})

	_, err := c.Request(context.Background(), "user.info", url.Values{"handles": {"tourist"}})

	require.Error(t, err)
	var te *TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, int32(4), hits.Load())
	assert.Equal(t, 3, metrics.UpstreamRetries["user.info:status_503"])
	assert.Equal(t, 1, metrics.UpstreamRequests["user.info:transient"])

	retryWaits := 0
	for _, d := range rec.all() {
		if d == 5*time.Second {
			retryWaits++
		}
	}
	assert.Equal(t, 3, retryWaits)
}

func TestRequest_400NotRetried(t *testing.T) {
	var hits atomic.Int32
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusBadRequest, `{"status":"FAILED","comment":"handle: Field should contain only Latin letters"}`)
	})

	_, err := c.Request(context.Background(), "user.info", url.Values{"handles": {"??"}})

	var pe *PermanentError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
	assert.Contains(t, pe.Comment, "Latin letters")
	assert.False(t, IsTransient(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestRequest_400NotFoundWrapsErrNotFound(t *testing.T) {
	var hits atomic.Int32
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusBadRequest, `{"status":"FAILED","comment":"handles: User with handle ghost not found"}`)
	})

	_, err := c.Request(context.Background(), "user.info", url.Values{"handles": {"ghost"}})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRequest_429DoublesDelay(t *testing.T) {
	var hits atomic.Int32
	c, rec, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			writeJSON(w, http.StatusTooManyRequests, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[]}`)
	})

	_, err := c.Request(context.Background(), "contest.list", nil)

	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Contains(t, rec.all(), 10*time.Second)
	assert.Equal(t, 1, metrics.UpstreamRetries["contest.list:rate_limited"])
}

func TestRequest_NotFoundRetriedThenPermanent(t *testing.T) {
	var hits atomic.Int32
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `{"status":"FAILED","comment":"handles: User with handle newbie not found"}`)
	})

	_, err := c.Request(context.Background(), "user.info", url.Values{"handles": {"newbie"}})

	var pe *PermanentError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(4), hits.Load())
}

func TestRequest_NotFoundWithoutRetry(t *testing.T) {
	var hits atomic.Int32
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `{"status":"FAILED","comment":"not found"}`)
	}, func(conf *structures.Config) {
		conf.Codeforces.RetryNotFound = false
	})

	_, err := c.Request(context.Background(), "user.info", nil)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRequest_NotFoundRecovers(t *testing.T) {
	var hits atomic.Int32
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			writeJSON(w, http.StatusOK, `{"status":"FAILED","comment":"not found"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[{"handle":"newbie"}]}`)
	})

	p, err := c.UserInfo(context.Background(), "newbie")

	require.NoError(t, err)
	assert.Equal(t, "newbie", p.Handle)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRequest_FailedStatusIsPermanent(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"FAILED","comment":"Call limit exceeded"}`)
	})

	_, err := c.Request(context.Background(), "user.status", nil)

	var pe *PermanentError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Call limit exceeded", pe.Comment)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRequest_MalformedEnvelope(t *testing.T) {
	c, _, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `<html>maintenance</html>`)
	})

	_, err := c.Request(context.Background(), "contest.list", nil)

	var mp *MalformedPayloadError
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, 1, metrics.UpstreamRequests["contest.list:malformed"])
}

func TestRequest_ContextCancelledDuringRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var hits atomic.Int32
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		cancel()
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	})

	_, err := c.Request(ctx, "contest.list", nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), hits.Load())
}

func TestWait_EnforcesMinInterval(t *testing.T) {
	c, rec, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[]}`)
	})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Request(context.Background(), "contest.list", nil)
	require.NoError(t, err)
	assert.Empty(t, rec.all())

	now = now.Add(500 * time.Millisecond)
	_, err = c.Request(context.Background(), "contest.list", nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, rec.all())

	now = now.Add(3 * time.Second)
	_, err = c.Request(context.Background(), "contest.list", nil)
	require.NoError(t, err)
	assert.Len(t, rec.all(), 1)
}

func TestUserRating_NoHistoryIsEmpty(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"status":"FAILED","comment":"handle: User ghost not found"}`)
	})

	history, err := c.UserRating(context.Background(), "ghost")

	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestUserRating_Maps(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tourist", r.URL.Query().Get("handle"))
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[
			{"contestId":1,"contestName":"Codeforces Round #1 (Div. 2)","handle":"tourist","rank":3,"ratingUpdateTimeSeconds":1266588000,"oldRating":0,"newRating":1602}
		]}`)
	})

	history, err := c.UserRating(context.Background(), "tourist")

	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].ContestID)
	assert.Equal(t, 1602, history[0].Delta())
	assert.Equal(t, int64(1266588000), history[0].UpdatedAt.Unix())
}

func TestUserStatus_CapsCount(t *testing.T) {
	var query url.Values
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[
			{"id":10,"contestId":5,"creationTimeSeconds":1700000000,"problem":{"contestId":5,"index":"A","name":"Sum"},"programmingLanguage":"Go","verdict":"OK"},
			{"id":11,"creationTimeSeconds":1700000100,"problem":{"contestId":5,"index":"B","name":"Prod"},"verdict":"TESTING"}
		]}`)
	})

	subs, err := c.UserStatus(context.Background(), "tourist", 100000)

	require.NoError(t, err)
	assert.Equal(t, "1", query.Get("from"))
	assert.Equal(t, "50000", query.Get("count"))
	require.Len(t, subs, 2)
	assert.Equal(t, models.VerdictAccepted, subs[0].Verdict)
	assert.Equal(t, models.VerdictOther, subs[1].Verdict)
	assert.Equal(t, 5, subs[1].ContestID)
}

func TestUserStatus_MalformedRecord(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[{"id":10,"creationTimeSeconds":1700000000,"problem":{}}]}`)
	})

	_, err := c.UserStatus(context.Background(), "tourist", 10)

	var mp *MalformedPayloadError
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, "problem.index", mp.Field)
}

func TestUserInfo_EmptyResult(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[]}`)
	})

	_, err := c.UserInfo(context.Background(), "nobody")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsAvailable(t *testing.T) {
	up, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("gym"))
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[]}`)
	})
	assert.True(t, up.IsAvailable(context.Background()))

	down, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{}`)
	}, func(conf *structures.Config) {
		conf.Codeforces.MaxRetries = 0
	})
	assert.False(t, down.IsAvailable(context.Background()))
}

func TestContestList(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"OK","result":[{"id":1900,"name":"Educational Round 160","type":"ICPC","phase":"FINISHED"}]}`)
	})

	contests, err := c.ContestList(context.Background(), false)

	require.NoError(t, err)
	require.Len(t, contests, 1)
	assert.Equal(t, "Educational Round 160", contests[0].Name)
}
