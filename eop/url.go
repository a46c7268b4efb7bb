package eop

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultFinalsURL is the IERS rapid-service finals2000A file.
const DefaultFinalsURL = "https://datacenter.iers.org/data/9/finals2000A.all"

const fetchUserAgent = "timescale-eop-fetch"

// URLSource fetches a finals file over HTTP, typically on a schedule,
// to keep a FileProvider's table current.
type URLSource struct {
	URL    string
	Client *http.Client
}

// NewURLSource builds a source with a bounded-timeout HTTP client.
func NewURLSource(url string) *URLSource {
	if url == "" {
		url = DefaultFinalsURL
	}
	return &URLSource{
		URL:    url,
		Client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Fetch downloads and parses the finals file. Cancellation and timeouts
// arrive via ctx in addition to the client's own timeout.
func (s *URLSource) Fetch(ctx context.Context) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch finals: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch finals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch finals: unexpected status %d from %s", resp.StatusCode, s.URL)
	}

	table, err := ParseFinals(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch finals: %w", err)
	}
	return table, nil
}
