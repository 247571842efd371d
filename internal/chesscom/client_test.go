package chesscom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess-tracker/internal/config"
	apperrors "github.com/chess-tracker/internal/errors"
)

func testClient(baseURL string) *Client {
	return NewClient(&config.ChessAPIConfig{
		BaseURL:      baseURL,
		CallbackURL:  baseURL + "/callback",
		UserAgent:    "chess-tracker-test",
		RequestDelay: time.Millisecond,
		Timeout:      5 * time.Second,
	})
}

func TestListArchives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pub/player/alice/games/archives", r.URL.Path)
		assert.Equal(t, "chess-tracker-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"archives":["https://api.chess.com/pub/player/alice/games/2021/09","https://api.chess.com/pub/player/alice/games/2021/10"]}`)
	}))
	defer srv.Close()

	archives, err := testClient(srv.URL).ListArchives(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, archives, 2)
	assert.Contains(t, archives[0], "2021/09")
}

func TestFetchArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"abc123"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"abc123"`)
		fmt.Fprint(w, `{"games":[{"url":"https://www.chess.com/game/live/1","end_time":1633540285,"time_class":"blitz","white":{"username":"alice","rating":1500,"result":"win"},"black":{"username":"bob","rating":1490,"result":"resigned"}}]}`)
	}))
	defer srv.Close()

	client := testClient(srv.URL)

	result, err := client.FetchArchive(context.Background(), srv.URL+"/archive", "")
	require.NoError(t, err)
	assert.False(t, result.NotModified)
	assert.Equal(t, `"abc123"`, result.ETag)
	require.Len(t, result.Games, 1)
	assert.Equal(t, "1", result.Games[0].GameID())
	assert.Equal(t, "alice", result.Games[0].White.Username)

	// Conditional fetch with the stored token short-circuits.
	result, err = client.FetchArchive(context.Background(), srv.URL+"/archive", `"abc123"`)
	require.NoError(t, err)
	assert.True(t, result.NotModified)
	assert.Empty(t, result.Games)
}

func TestFetchArchive_ServerErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchArchive(context.Background(), srv.URL+"/archive", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
}

func TestFetchGameDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/callback/live/game/42", r.URL.Path)
		fmt.Fprint(w, `{"game":{"isAnalyzable":true},"players":{"top":{"username":"bob","rating":1490,"ratingChange":-8},"bottom":{"username":"alice","rating":1508,"ratingChange":8}}}`)
	}))
	defer srv.Close()

	detail, err := testClient(srv.URL).FetchGameDetail(context.Background(), "42", false)
	require.NoError(t, err)
	assert.True(t, detail.Game.IsAnalyzable)
	assert.Equal(t, "alice", detail.Players.Bottom.Username)
	assert.Equal(t, 8, detail.Players.Bottom.RatingChange)
}

func TestArchiveURL(t *testing.T) {
	client := testClient("https://api.chess.com")
	url := client.ArchiveURL("alice", 2021, time.September)
	assert.Equal(t, "https://api.chess.com/pub/player/alice/games/2021/09", url)
}
