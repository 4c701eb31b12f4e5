package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Source reads a CSV over HTTP(S).
type Source struct {
	URL    string
	Client *Client
}

// NewSource returns a Source for url. A nil client gets the defaults.
func NewSource(url string, client *Client) *Source {
	if client == nil {
		client = NewClient(Config{})
	}
	return &Source{URL: url, Client: client}
}

// Open issues the GET. Any non-2xx status is an error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.Client.Get(ctx, s.URL, http.Header{"Accept": {"text/csv, */*"}})
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", s.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", s.URL, resp.StatusCode)
	}
	return resp.Body, nil
}

// Name is the display filename derived from the URL.
func (s *Source) Name() string { return NameFromURL(s.URL) }
