// Package trailer looks up YouTube metadata for anime trailers.
package trailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"animax/internal/config"
)

// ErrNotFound is returned when YouTube has no video for the id.
var ErrNotFound = errors.New("trailer video not found")

// ErrInvalidID is returned for ids that are not YouTube video ids.
var ErrInvalidID = errors.New("invalid youtube video id")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Video is the trailer metadata served to the detail page.
type Video struct {
	ID        string `json:"youtube_id"`
	EmbedURL  string `json:"embed_url"`
	Title     string `json:"title,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Client fetches video snippets from the YouTube Data API.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client

	mu  sync.Mutex
	svc *youtube.Service
}

// NewClient creates a new trailer client. Without an API key, lookups only fill the embed URL.
func NewClient(appConfig *config.AppConfig, client *http.Client) *Client {
	endpoint := appConfig.YouTubeAPIURL
	if endpoint != "" && !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &Client{
		apiKey:     appConfig.GoogleAPIKey,
		endpoint:   endpoint,
		httpClient: client,
	}
}

func (c *Client) service(ctx context.Context) (*youtube.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svc != nil {
		return c.svc, nil
	}
	opts := []option.ClientOption{option.WithHTTPClient(c.httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	c.svc = svc
	return svc, nil
}

// Lookup returns trailer metadata for a YouTube video id.
func (c *Client) Lookup(ctx context.Context, videoID string) (*Video, error) {
	if !videoIDPattern.MatchString(videoID) {
		return nil, ErrInvalidID
	}
	video := &Video{
		ID:       videoID,
		EmbedURL: "https://www.youtube.com/embed/" + videoID,
	}
	if c.apiKey == "" {
		slog.Debug("YouTube API key not set, returning embed URL only", "video", videoID)
		return video, nil
	}

	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).
		Do(googleapi.QueryParameter("key", c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube api video details: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, ErrNotFound
	}

	snippet := resp.Items[0].Snippet
	video.Title = snippet.Title
	video.Channel = snippet.ChannelTitle
	if t := snippet.Thumbnails; t != nil {
		switch {
		case t.High != nil:
			video.Thumbnail = t.High.Url
		case t.Default != nil:
			video.Thumbnail = t.Default.Url
		}
	}
	slog.Debug("Fetched trailer details", "video", videoID, "title", video.Title, "channel", video.Channel)
	return video, nil
}
