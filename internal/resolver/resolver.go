package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/huahuadeliaoliao/RoseSong/internal/bilibili"
)

// ErrFetch is the terminal failure after the retry budget is spent. Callers
// must treat the track as unplayable right now and move on instead of
// retrying further.
var ErrFetch = errors.New("max retries reached fetching a playable audio url")

// Backoff is the retry policy: a bounded attempt count with a doubling
// delay between attempts. Kept as plain data so tests can drive it with an
// injected sleep.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Factor   int
}

// Delay returns the wait before retry number attempt (1-based, so the delay
// after the first failed attempt is Initial).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Initial
	for i := 1; i < attempt; i++ {
		d *= time.Duration(b.Factor)
	}
	return d
}

// AudioURLFetcher is the metadata API dependency; *bilibili.Client
// satisfies it.
type AudioURLFetcher interface {
	FetchAudioURL(ctx context.Context, bvid, cid string) (string, error)
}

// Resolver turns a track identifier pair into a verified playable URL.
// Upstream URLs are short-lived and agent-gated, so every resolution
// re-fetches and re-verifies; nothing is cached across tracks.
type Resolver struct {
	api     AudioURLFetcher
	http    *http.Client
	backoff Backoff
	sleep   func(context.Context, time.Duration) error
}

func New(api AudioURLFetcher) *Resolver {
	return &Resolver{
		api:     api,
		http:    &http.Client{Timeout: 10 * time.Second},
		backoff: Backoff{Attempts: 3, Initial: time.Second, Factor: 2},
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Resolve fetches a candidate URL and verifies it with a partial-range GET,
// retrying the whole fetch+verify step with exponential backoff. After the
// final attempt it fails with ErrFetch.
func (r *Resolver) Resolve(ctx context.Context, bvid, cid string) (string, error) {
	for attempt := 1; attempt <= r.backoff.Attempts; attempt++ {
		url, err := r.api.FetchAudioURL(ctx, bvid, cid)
		if err != nil {
			slog.Error("fetch audio url", "bvid", bvid, "attempt", attempt, "err", err)
		} else {
			ok, err := r.verify(ctx, url)
			if err != nil {
				slog.Error("verify audio url", "bvid", bvid, "attempt", attempt, "err", err)
			} else if ok {
				return url, nil
			} else {
				slog.Info("audio url failed verification", "bvid", bvid, "attempt", attempt)
			}
		}

		if attempt < r.backoff.Attempts {
			slog.Info("retrying audio url fetch", "bvid", bvid, "attempt", attempt, "of", r.backoff.Attempts)
			if err := r.sleep(ctx, r.backoff.Delay(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFetch, bvid)
}

// verify issues a small range GET with the spoofed client headers the CDN
// expects; any 2xx answer means the URL is playable.
func (r *Resolver) verify(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", bilibili.UserAgent)
	req.Header.Set("Referer", bilibili.Referer)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Range", "bytes=0-1024")

	resp, err := r.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
