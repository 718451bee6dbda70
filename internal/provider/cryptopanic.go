package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/fetch"
)

const cryptoPanicBase = "https://cryptopanic.com/api/v1"

// CryptoPanic fetches news posts for a token. The posts endpoint offers no
// reliable server-side date filter, so the adapter follows pagination to
// the end and filters the window client-side.
type CryptoPanic struct {
	executor Executor
	apiKey   string
	baseURL  string
	now      func() time.Time
}

// NewCryptoPanic creates the CryptoPanic news adapter.
func NewCryptoPanic(executor Executor, apiKey string) *CryptoPanic {
	return &CryptoPanic{
		executor: executor,
		apiKey:   apiKey,
		baseURL:  cryptoPanicBase,
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ Adapter = (*CryptoPanic)(nil)

// Name returns the provider identity.
func (a *CryptoPanic) Name() domain.Provider {
	return domain.ProviderCryptoPanic
}

// Windows keeps the whole window as one work item per token; pagination
// happens inside Fetch.
func (a *CryptoPanic) Windows(w DateWindow) []DateWindow {
	return singleWindow(w)
}

// cryptoPanicPage is one page of the posts endpoint.
type cryptoPanicPage struct {
	Next    string            `json:"next"`
	Results []cryptoPanicPost `json:"results"`
}

type cryptoPanicPost struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Body        string             `json:"body"`
	URL         string             `json:"url"`
	PublishedAt string             `json:"published_at"`
	CreatedAt   string             `json:"created_at"`
	PanicScore  *float64           `json:"panic_score"`
	Source      *cryptoPanicSource `json:"source"`
	Votes       *cryptoPanicVotes  `json:"votes"`
}

type cryptoPanicSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type cryptoPanicVotes struct {
	Bullish  int `json:"bullish"`
	Bearish  int `json:"bearish"`
	Liked    int `json:"liked"`
	Disliked int `json:"disliked"`
}

// Fetch retrieves all posts for token, following the continuation URL
// until the source reports no further pages, then filters to the window.
func (a *CryptoPanic) Fetch(ctx context.Context, token string, w DateWindow) (*domain.Batch, error) {
	batch := domain.NewBatch(a.Name())
	symbol := strings.ToUpper(token)

	req := &fetch.Request{
		URL: a.baseURL + "/posts/",
		Query: map[string]string{
			"auth_token":   a.apiKey,
			"currencies":   symbol,
			"filter":       "rising|hot|important|bullish|bearish",
			"kind":         "news|media",
			"public":       "true",
			"with_content": "true",
			"size":         "50",
		},
	}

	for req != nil {
		resp, err := a.executor.Execute(ctx, req)
		if err != nil {
			return nil, err
		}

		var page cryptoPanicPage
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, &fetch.Failure{
				Provider: a.Name(),
				URL:      req.URL,
				Err:      fmt.Errorf("decode posts page: %w", err),
			}
		}

		for _, post := range page.Results {
			event := a.normalizePost(symbol, post)
			if w.Contains(event.Date) {
				batch.NewsEvents = append(batch.NewsEvents, event)
			}
		}

		// Continuation URLs carry their own query string.
		if page.Next == "" {
			req = nil
		} else {
			req = &fetch.Request{URL: page.Next}
		}
	}

	return batch, nil
}

// normalizePost maps one post into a NewsEvent. Missing fields degrade to
// empty strings; an unparseable timestamp falls back to the current day.
func (a *CryptoPanic) normalizePost(symbol string, post cryptoPanicPost) *domain.NewsEvent {
	desc := post.Description
	if desc == "" {
		desc = post.Body
	}

	source := "cryptopanic"
	url := post.URL
	if post.Source != nil {
		if post.Source.Title != "" {
			source = post.Source.Title
		}
		if url == "" {
			url = post.Source.URL
		}
	}

	published := post.PublishedAt
	if published == "" {
		published = post.CreatedAt
	}

	return &domain.NewsEvent{
		Token:          symbol,
		Date:           a.parseDate(published),
		Title:          post.Title,
		Description:    desc,
		Source:         source,
		SentimentScore: sentimentFromPost(post),
		URL:            url,
	}
}

func (a *CryptoPanic) parseDate(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return domain.Day(a.now())
	}
	return domain.Day(t)
}

// sentimentFromPost prefers the provider's panic_score; when the
// subscription tier omits it, the score is a bounded linear combination
// of vote counts in [-1, 1]. Zero votes on both sides is exactly neutral.
func sentimentFromPost(post cryptoPanicPost) float64 {
	if post.PanicScore != nil {
		return *post.PanicScore
	}
	if post.Votes == nil {
		return 0.0
	}
	bullish := post.Votes.Bullish + post.Votes.Liked
	bearish := post.Votes.Bearish + post.Votes.Disliked
	total := bullish + bearish
	if total == 0 {
		return 0.0
	}
	return float64(bullish-bearish) / float64(total)
}
