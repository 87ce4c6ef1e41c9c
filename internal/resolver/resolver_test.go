package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huahuadeliaoliao/RoseSong/internal/bilibili"
)

type fetchFunc func(ctx context.Context, bvid, cid string) (string, error)

func (f fetchFunc) FetchAudioURL(ctx context.Context, bvid, cid string) (string, error) {
	return f(ctx, bvid, cid)
}

// newTestResolver wires a resolver whose sleeps are recorded instead of
// waited out.
func newTestResolver(api AudioURLFetcher) (*Resolver, *[]time.Duration) {
	slept := &[]time.Duration{}
	r := New(api)
	r.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return r, slept
}

func TestBackoffDelayDoubles(t *testing.T) {
	b := Backoff{Attempts: 3, Initial: time.Second, Factor: 2}
	assert.Equal(t, time.Second, b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 4*time.Second, b.Delay(3))
}

func TestResolveFirstAttemptSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer srv.Close()

	var fetches atomic.Int32
	r, slept := newTestResolver(fetchFunc(func(ctx context.Context, bvid, cid string) (string, error) {
		fetches.Add(1)
		return srv.URL + "/audio.m4s", nil
	}))

	url, err := r.Resolve(context.Background(), "BVtest", "42")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/audio.m4s", url)
	assert.Equal(t, int32(1), fetches.Load())
	assert.Empty(t, *slept)
}

func TestResolveRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// first two candidate urls fail verification
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer srv.Close()

	var fetches atomic.Int32
	r, slept := newTestResolver(fetchFunc(func(ctx context.Context, bvid, cid string) (string, error) {
		fetches.Add(1)
		return srv.URL, nil
	}))

	_, err := r.Resolve(context.Background(), "BVtest", "42")
	require.NoError(t, err)
	assert.Equal(t, int32(3), fetches.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestResolveExhaustsRetryBudget(t *testing.T) {
	var fetches atomic.Int32
	r, slept := newTestResolver(fetchFunc(func(ctx context.Context, bvid, cid string) (string, error) {
		fetches.Add(1)
		return "", errors.New("upstream down")
	}))

	_, err := r.Resolve(context.Background(), "BVgone", "42")
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "BVgone")
	assert.Equal(t, int32(3), fetches.Load())
	// no sleep after the final attempt
	assert.Len(t, *slept, 2)
}

func TestResolveCancelledDuringBackoff(t *testing.T) {
	r := New(fetchFunc(func(ctx context.Context, bvid, cid string) (string, error) {
		return "", errors.New("upstream down")
	}))
	r.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	_, err := r.Resolve(context.Background(), "BVtest", "42")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifySendsSpoofedHeaders(t *testing.T) {
	var gotUA, gotReferer, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer srv.Close()

	r, _ := newTestResolver(fetchFunc(func(ctx context.Context, bvid, cid string) (string, error) {
		return srv.URL, nil
	}))

	_, err := r.Resolve(context.Background(), "BVtest", "42")
	require.NoError(t, err)
	assert.Equal(t, bilibili.UserAgent, gotUA)
	assert.Equal(t, bilibili.Referer, gotReferer)
	assert.Equal(t, "bytes=0-1024", gotRange)
}
