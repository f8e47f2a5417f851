package videohost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNotFound = errors.New("video not found on host")

// HostVideo 托管平台管理接口返回的视频信息（只取需要的字段）
type HostVideo struct {
	GUID      string  `json:"guid"`
	Title     string  `json:"title"`
	Length    float64 `json:"length"`
	Status    int     `json:"status"`
	LibraryID int64   `json:"videoLibraryId"`

	Raw json.RawMessage `json:"-"`
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("AccessKey", apiKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond)

	return &Client{http: c}
}

func (c *Client) GetVideo(ctx context.Context, libraryID, mediaID string) (*HostVideo, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"libraryId": libraryID,
			"videoId":   mediaID,
		}).
		Get("/library/{libraryId}/videos/{videoId}")
	if err != nil {
		return nil, fmt.Errorf("video host request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("video host returned %d", resp.StatusCode())
	}

	var v HostVideo
	if err := json.Unmarshal(resp.Body(), &v); err != nil {
		return nil, fmt.Errorf("decode video host response: %w", err)
	}
	v.Raw = json.RawMessage(resp.Body())
	return &v, nil
}
