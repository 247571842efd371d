// Package chesscom fetches game history from the chess.com public archive
// API and the per-game callback endpoint.
package chesscom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/chess-tracker/internal/config"
	apperrors "github.com/chess-tracker/internal/errors"
	"github.com/chess-tracker/internal/models"
)

// Client fetches monthly archives for one account. Every remote call is
// preceded by a courtesy delay (the public API rate-limits unauthenticated
// clients). There is no automatic retry; a failed fetch surfaces to the
// caller.
type Client struct {
	baseURL     string
	callbackURL string
	userAgent   string
	client      *http.Client
	limiter     *rate.Limiter
}

// NewClient creates an archive API client from configuration.
func NewClient(cfg *config.ChessAPIConfig) *Client {
	delay := cfg.RequestDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		callbackURL: cfg.CallbackURL,
		userAgent:   cfg.UserAgent,
		client:      &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Every(delay), 1),
	}
}

// archivesResponse is the /archives envelope.
type archivesResponse struct {
	Archives []string `json:"archives"`
}

// archiveResponse is a monthly archive envelope.
type archiveResponse struct {
	Games []models.RawGame `json:"games"`
}

// ArchiveResult is the outcome of one conditional monthly-archive fetch.
type ArchiveResult struct {
	Games       []models.RawGame
	ETag        string
	NotModified bool
}

// ListArchives returns the monthly archive URLs for a username, oldest
// first as the API reports them.
func (c *Client) ListArchives(ctx context.Context, username string) ([]string, error) {
	url := fmt.Sprintf("%s/pub/player/%s/games/archives", c.baseURL, username)

	body, _, _, err := c.get(ctx, url, "")
	if err != nil {
		return nil, err
	}

	var resp archivesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewParseError("", "archives payload", err)
	}
	return resp.Archives, nil
}

// FetchArchive fetches one monthly archive. A non-empty etag makes the
// fetch conditional; a 304 response yields NotModified with zero games.
func (c *Client) FetchArchive(ctx context.Context, url, etag string) (*ArchiveResult, error) {
	body, newETag, notModified, err := c.get(ctx, url, etag)
	if err != nil {
		return nil, err
	}
	if notModified {
		return &ArchiveResult{ETag: etag, NotModified: true}, nil
	}

	var resp archiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewParseError("", "archive payload", err)
	}
	return &ArchiveResult{Games: resp.Games, ETag: newETag}, nil
}

// ArchiveURL builds the monthly archive URL for a year and month.
func (c *Client) ArchiveURL(username string, year int, month time.Month) string {
	return fmt.Sprintf("%s/pub/player/%s/games/%d/%02d", c.baseURL, username, year, int(month))
}

// CallbackPlayer is one side of the callback/detail payload.
type CallbackPlayer struct {
	Username        string `json:"username"`
	Rating          int    `json:"rating"`
	RatingChange    int    `json:"ratingChange"`
	CountryName     string `json:"countryName,omitempty"`
	MembershipLevel int    `json:"membershipLevel,omitempty"`
}

// GameDetail is the per-game callback payload used for best-effort
// enrichment.
type GameDetail struct {
	Game struct {
		IsAnalyzable bool `json:"isAnalyzable"`
	} `json:"game"`
	Players struct {
		Top    CallbackPlayer `json:"top"`
		Bottom CallbackPlayer `json:"bottom"`
	} `json:"players"`
}

// FetchGameDetail fetches the detail record for one game. The daily flag
// selects the correspondence endpoint.
func (c *Client) FetchGameDetail(ctx context.Context, gameID string, daily bool) (*GameDetail, error) {
	kind := "live"
	if daily {
		kind = "daily"
	}
	url := fmt.Sprintf("%s/%s/game/%s", c.callbackURL, kind, gameID)

	body, _, _, err := c.get(ctx, url, "")
	if err != nil {
		return nil, err
	}

	var detail GameDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, apperrors.NewParseError(gameID, "callback payload", err)
	}
	return &detail, nil
}

// get performs one throttled GET. Any status other than 2xx or 304 is a
// transport error for the caller to treat as fatal.
func (c *Client) get(ctx context.Context, url, etag string) (body []byte, newETag string, notModified bool, err error) {
	// Courtesy delay before every remote call.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", false, apperrors.NewTransportError(url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, etag, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", false, apperrors.NewTransportError(url, resp.StatusCode, nil)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.Header.Get("ETag"), false, nil
}
