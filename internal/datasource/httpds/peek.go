package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FetchFirstBytes returns at most n leading bytes of url. It asks for a
// Range and still caps the read for servers that ignore it, so a profile
// sample of a large remote CSV does not download the whole file.
func (c *Client) FetchFirstBytes(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpds: n must be > 0")
	}

	resp, err := c.Get(ctx, url, http.Header{"Range": {fmt.Sprintf("bytes=0-%d", n-1)}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("httpds: GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, int64(n)))
}
