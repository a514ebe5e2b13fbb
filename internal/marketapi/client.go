// Package marketapi is a read-only client for the market/season/event JSON API.
package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/jwerderits/farmspread/internal/logger"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxPages stops a list fetch whose "next" links never run out.
const maxPages = 1000

// Client fetches resources by URI. Relative URIs are resolved against the
// base URL. Requests are never retried.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the API at baseURL. headers are sent on
// every request (authentication is static header based).
func NewClient(baseURL string, headers map[string]string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetHeader("Accept", "application/json")
	client.SetHeaders(headers)
	return &Client{http: client}
}

// GetJSON fetches uri and decodes the body into out. Every failure is a
// *domain.TransportError.
func (c *Client) GetJSON(ctx context.Context, uri string, out any) error {
	body, err := c.get(ctx, uri)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.TransportError{URL: uri, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

func (c *Client) get(ctx context.Context, uri string) ([]byte, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	resp, err := c.http.R().SetContext(ctx).Get(uri)
	if err != nil {
		return nil, &domain.TransportError{URL: uri, Err: err}
	}
	status := resp.StatusCode()

	log.Debug().
		Str("uri", uri).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("API request")

	if status < 200 || status > 299 {
		return nil, &domain.TransportError{
			URL:        uri,
			StatusCode: status,
			Err:        errors.New(strings.TrimSpace(truncate(resp.String(), 200))),
		}
	}
	return resp.Body(), nil
}

// listPage is the paginated list envelope.
type listPage struct {
	Meta struct {
		Next *string `json:"next"`
	} `json:"meta"`
	Objects json.RawMessage `json:"objects"`
}

// List fetches a list endpoint and returns the decoded elements of every
// page. A bare JSON array is a single page; an envelope with meta.next is
// followed until next is null or empty.
func List[T any](ctx context.Context, c *Client, uri string) ([]T, error) {
	var out []T
	seen := make(map[string]bool)
	next := uri

	for page := 0; next != ""; page++ {
		if page >= maxPages || seen[next] {
			return nil, &domain.TransportError{URL: next, Err: errors.New("pagination does not terminate")}
		}
		seen[next] = true

		body, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		items, following, err := decodePage[T](body)
		if err != nil {
			return nil, &domain.TransportError{URL: next, Err: err}
		}
		out = append(out, items...)
		next = resolveNext(next, following)
	}
	return out, nil
}

func decodePage[T any](body []byte) ([]T, string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", fmt.Errorf("decode list: %w", err)
		}
		return items, "", nil
	}

	var page listPage
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, "", fmt.Errorf("decode list page: %w", err)
	}
	var items []T
	if len(page.Objects) > 0 && !bytes.Equal(page.Objects, []byte("null")) {
		if err := json.Unmarshal(page.Objects, &items); err != nil {
			return nil, "", fmt.Errorf("decode list objects: %w", err)
		}
	}
	next := ""
	if page.Meta.Next != nil {
		next = strings.TrimSpace(*page.Meta.Next)
	}
	return items, next, nil
}

// resolveNext handles query-only next links ("?offset=20") by reusing the
// current path.
func resolveNext(current, next string) string {
	if !strings.HasPrefix(next, "?") {
		return next
	}
	if i := strings.Index(current, "?"); i >= 0 {
		current = current[:i]
	}
	return current + next
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
