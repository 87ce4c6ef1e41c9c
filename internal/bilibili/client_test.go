package bilibili

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport redirects every request to the test server while keeping
// the original path and query, so the hardcoded api endpoints stay testable.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return NewClientWith(&http.Client{Transport: rewriteTransport{target: target}})
}

func TestFetchAudioURL(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/player/playurl", r.URL.Path)
		assert.Equal(t, "16", r.URL.Query().Get("fnval"))
		assert.Equal(t, "BVtest", r.URL.Query().Get("bvid"))
		assert.Equal(t, "42", r.URL.Query().Get("cid"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, Referer, r.Header.Get("Referer"))
		w.Write([]byte(`{"data":{"dash":{"audio":[{"baseUrl":"https://cdn.example/a.m4s"},{"baseUrl":"https://cdn.example/b.m4s"}]}}}`))
	})

	got, err := c.FetchAudioURL(context.Background(), "BVtest", "42")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.m4s", got)
}

func TestFetchAudioURLNoStreams(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"dash":{"audio":[]}}}`))
	})

	_, err := c.FetchAudioURL(context.Background(), "BVtest", "42")
	assert.ErrorContains(t, err, "no audio stream")
}

func TestFetchAudioURLHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchAudioURL(context.Background(), "BVtest", "42")
	assert.ErrorContains(t, err, "http 429")
}

func TestFetchVideoData(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/web-interface/view", r.URL.Path)
		assert.Equal(t, "BVtest", r.URL.Query().Get("bvid"))
		w.Write([]byte(`{"data":{"title":"some song","cid":9876,"owner":{"name":"uploader"}}}`))
	})

	got, err := c.FetchVideoData(context.Background(), "BVtest")
	require.NoError(t, err)
	assert.Equal(t, &VideoData{Bvid: "BVtest", Title: "some song", Cid: 9876, Owner: Owner{Name: "uploader"}}, got)
}

func TestFetchVideoDataMissingCid(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"title":"gone"}}`))
	})

	_, err := c.FetchVideoData(context.Background(), "BVgone")
	assert.ErrorContains(t, err, "no cid")
}

func TestFetchBvidsFromFid(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/v3/fav/resource/ids", r.URL.Path)
		assert.Equal(t, "123", r.URL.Query().Get("media_id"))
		w.Write([]byte(`{"data":[{"bvid":"BV1"},{"bvid":""},{"bvid":"BV2"}]}`))
	})

	got, err := c.FetchBvidsFromFid(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"BV1", "BV2"}, got)
}

func TestFetchBvidsFromFidEmpty(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	_, err := c.FetchBvidsFromFid(context.Background(), "404")
	assert.ErrorContains(t, err, "empty or does not exist")
}
