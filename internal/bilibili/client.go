package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	playURLBase = "https://api.bilibili.com/x/player/playurl?fnval=16"
	viewBase    = "https://api.bilibili.com/x/web-interface/view"
	favIDsBase  = "https://api.bilibili.com/x/v3/fav/resource/ids"

	// UserAgent and Referer satisfy the upstream CDN access policy; stream
	// URLs are rejected without them.
	UserAgent = "Mozilla/5.0 BiliDroid/..* (bbcallen@gmail.com)"
	Referer   = "https://www.bilibili.com"
)

// Client is a thin read-only wrapper around the Bilibili web API endpoints
// the player needs.
type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 15 * time.Second}}
}

// NewClientWith lets tests substitute the underlying HTTP client.
func NewClientWith(h *http.Client) *Client {
	return &Client{http: h}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Referer", Referer)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bilibili api: http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FetchAudioURL resolves a (bvid, cid) pair to a candidate playable stream
// URL. The returned URL expires upstream and must not be cached.
func (c *Client) FetchAudioURL(ctx context.Context, bvid, cid string) (string, error) {
	u := fmt.Sprintf("%s&bvid=%s&cid=%s", playURLBase, url.QueryEscape(bvid), url.QueryEscape(cid))

	var body struct {
		Data struct {
			Dash struct {
				Audio []struct {
					BaseURL string `json:"baseUrl"`
				} `json:"audio"`
			} `json:"dash"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return "", err
	}
	if len(body.Data.Dash.Audio) == 0 || body.Data.Dash.Audio[0].BaseURL == "" {
		return "", fmt.Errorf("playurl response for %s carries no audio stream", bvid)
	}
	return body.Data.Dash.Audio[0].BaseURL, nil
}

type Owner struct {
	Name string `json:"name"`
}

// VideoData is the subset of the view endpoint the playlist client stores.
type VideoData struct {
	Bvid  string `json:"bvid"`
	Title string `json:"title"`
	Cid   int64  `json:"cid"`
	Owner Owner  `json:"owner"`
}

// FetchVideoData resolves a bvid to its title, default cid and owner.
func (c *Client) FetchVideoData(ctx context.Context, bvid string) (*VideoData, error) {
	u := fmt.Sprintf("%s?bvid=%s", viewBase, url.QueryEscape(bvid))

	var body struct {
		Data VideoData `json:"data"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, err
	}
	if body.Data.Cid == 0 {
		return nil, fmt.Errorf("view response for %s carries no cid", bvid)
	}
	body.Data.Bvid = bvid
	return &body.Data, nil
}

// FetchBvidsFromFid lists the bvids stored in a favorites collection.
func (c *Client) FetchBvidsFromFid(ctx context.Context, fid string) ([]string, error) {
	u := fmt.Sprintf("%s?media_id=%s", favIDsBase, url.QueryEscape(fid))

	var body struct {
		Data []struct {
			Bvid string `json:"bvid"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, err
	}
	bvids := make([]string, 0, len(body.Data))
	for _, d := range body.Data {
		if d.Bvid != "" {
			bvids = append(bvids, d.Bvid)
		}
	}
	if len(bvids) == 0 {
		return nil, fmt.Errorf("favorites collection %s is empty or does not exist", fid)
	}
	return bvids, nil
}
