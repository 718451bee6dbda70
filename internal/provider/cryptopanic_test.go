package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhumphrey11/comoda-backfill/internal/fetch"
)

func TestCryptoPanic_Fetch_FollowsPagination(t *testing.T) {
	executor := &fakeExecutor{responses: []*fetch.Response{
		jsonResponse(`{
			"next": "https://cryptopanic.com/api/v1/posts/?page=2",
			"results": [
				{"title": "First", "published_at": "2024-03-01T10:00:00Z", "votes": {"bullish": 3, "bearish": 1}}
			]
		}`),
		jsonResponse(`{
			"next": "",
			"results": [
				{"title": "Second", "published_at": "2024-03-02T08:00:00Z", "votes": {"liked": 2, "disliked": 2}}
			]
		}`),
	}}
	a := NewCryptoPanic(executor, "token")

	batch, err := a.Fetch(context.Background(), "BTC", window(t, "2024-03-01", "2024-03-02"))
	require.NoError(t, err)

	require.Len(t, batch.NewsEvents, 2)
	assert.Equal(t, "First", batch.NewsEvents[0].Title)
	assert.Equal(t, "Second", batch.NewsEvents[1].Title)

	require.Len(t, executor.requests, 2)
	assert.Equal(t, "token", executor.requests[0].Query["auth_token"])
	assert.Equal(t, "BTC", executor.requests[0].Query["currencies"])
	// The continuation URL carries its own query string.
	assert.Equal(t, "https://cryptopanic.com/api/v1/posts/?page=2", executor.requests[1].URL)
	assert.Empty(t, executor.requests[1].Query)
}

func TestCryptoPanic_Fetch_FiltersToWindow(t *testing.T) {
	executor := &fakeExecutor{responses: []*fetch.Response{
		jsonResponse(`{
			"results": [
				{"title": "Inside", "published_at": "2024-03-02T12:00:00Z"},
				{"title": "Before", "published_at": "2024-02-20T12:00:00Z"},
				{"title": "After", "published_at": "2024-03-10T12:00:00Z"}
			]
		}`),
	}}
	a := NewCryptoPanic(executor, "token")

	batch, err := a.Fetch(context.Background(), "BTC", window(t, "2024-03-01", "2024-03-03"))
	require.NoError(t, err)

	require.Len(t, batch.NewsEvents, 1)
	assert.Equal(t, "Inside", batch.NewsEvents[0].Title)
	assert.Equal(t, day("2024-03-02"), batch.NewsEvents[0].Date)
}

func TestCryptoPanic_NormalizePost_Fallbacks(t *testing.T) {
	a := NewCryptoPanic(&fakeExecutor{}, "token")

	event := a.normalizePost("BTC", cryptoPanicPost{
		Title:       "Headline",
		Body:        "body text",
		PublishedAt: "2024-03-01T10:00:00Z",
		Source:      &cryptoPanicSource{Title: "CoinDesk", URL: "https://example.com/a"},
	})

	assert.Equal(t, "body text", event.Description)
	assert.Equal(t, "CoinDesk", event.Source)
	assert.Equal(t, "https://example.com/a", event.URL)
}

func TestCryptoPanic_NormalizePost_DefaultsWhenAbsent(t *testing.T) {
	a := NewCryptoPanic(&fakeExecutor{}, "token")
	a.now = func() time.Time { return day("2024-03-15") }

	event := a.normalizePost("BTC", cryptoPanicPost{Title: "Bare"})

	assert.Equal(t, "cryptopanic", event.Source)
	assert.Empty(t, event.URL)
	// Unparseable timestamp falls back to the current day.
	assert.Equal(t, day("2024-03-15"), event.Date)
	assert.Zero(t, event.SentimentScore)
}

func TestSentimentFromPost(t *testing.T) {
	score := 0.7

	tests := []struct {
		name string
		post cryptoPanicPost
		want float64
	}{
		{
			name: "panic score preferred over votes",
			post: cryptoPanicPost{PanicScore: &score, Votes: &cryptoPanicVotes{Bearish: 10}},
			want: 0.7,
		},
		{
			name: "votes combined linearly",
			post: cryptoPanicPost{Votes: &cryptoPanicVotes{Bullish: 3, Liked: 1, Bearish: 1, Disliked: 1}},
			want: (4.0 - 2.0) / 6.0,
		},
		{
			name: "zero votes is exactly neutral",
			post: cryptoPanicPost{Votes: &cryptoPanicVotes{}},
			want: 0.0,
		},
		{
			name: "no votes object",
			post: cryptoPanicPost{},
			want: 0.0,
		},
		{
			name: "all bearish",
			post: cryptoPanicPost{Votes: &cryptoPanicVotes{Bearish: 2, Disliked: 2}},
			want: -1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, sentimentFromPost(tt.post), 1e-9)
		})
	}
}
