package radio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

const debounceInterval = 100 * time.Millisecond

// Completer performs fast-path search suggestions against the plain-text
// autocomplete endpoint handed out at login. Lookups closer together than
// the debounce interval wait out the remainder of the window before firing,
// so the latest keystroke always produces suggestions.
type Completer struct {
	httpClient *http.Client
	session    *domain.Session
	now        func() time.Time
	sleep      func(time.Duration)

	last time.Time
}

// NewCompleter constructs the autocomplete lookup client.
func NewCompleter(httpClient *http.Client, session *domain.Session) *Completer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Completer{
		httpClient: httpClient,
		session:    session,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Complete fetches suggestions for the query. It returns nil without a
// network call when the query is empty or no endpoint is known. A call
// inside the debounce window blocks until the window elapses, then fires.
func (c *Completer) Complete(ctx context.Context, query string) ([]ports.SearchResult, error) {
	if strings.TrimSpace(query) == "" || c.session.AutoCompleteURL == "" {
		return nil, nil
	}

	if wait := debounceInterval - c.now().Sub(c.last); wait > 0 {
		c.sleep(wait)
	}
	c.last = c.now()

	target := c.session.AutoCompleteURL +
		"?auth_token=" + url.QueryEscape(c.session.AuthToken) +
		"&query=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("autocomplete: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: read response: %w", err)
	}

	return parseSuggestions(string(raw)), nil
}

// parseSuggestions decodes the tab-separated suggestion rows. The first row
// is a header and is skipped. Each row is token, artist and optionally song.
func parseSuggestions(body string) []ports.SearchResult {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) < 2 {
		return nil
	}

	results := make([]ports.SearchResult, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		label := fields[1]
		if len(fields) >= 3 && fields[2] != "" {
			label = fields[2] + " by " + fields[1]
		}
		results = append(results, ports.SearchResult{
			Token:        fields[0],
			Kind:         "Suggestions",
			Label:        label,
			AutoComplete: true,
		})
	}
	return results
}
