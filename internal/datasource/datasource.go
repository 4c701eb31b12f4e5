// Package datasource opens CSV input by location: a local path or an
// http(s) URL.
package datasource

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"csvclean/internal/datasource/file"
	"csvclean/internal/datasource/httpds"
)

// Source yields the raw bytes of one CSV document.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Named is implemented by sources that know a display filename.
type Named interface {
	Name() string
}

// FromLocation picks an HTTP source for http(s) URLs and a local file for
// anything else. A nil client gets httpds defaults.
func FromLocation(loc string, client *httpds.Client) Source {
	if IsURL(loc) {
		return httpds.NewSource(loc, client)
	}
	return file.NewLocal(loc)
}

// IsURL reports whether loc has an http or https scheme.
func IsURL(loc string) bool {
	l := strings.ToLower(loc)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// NameOf returns the source's display filename, or "uploaded.csv".
func NameOf(src Source) string {
	if n, ok := src.(Named); ok {
		if name := n.Name(); name != "" && name != "." {
			return name
		}
	}
	return "uploaded.csv"
}

// ReadAll opens src and reads it fully, failing when it exceeds limit bytes.
// limit <= 0 means no limit.
func ReadAll(ctx context.Context, src Source, limit int64) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := io.Reader(rc)
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", NameOf(src), err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", NameOf(src), limit)
	}
	return data, nil
}

// IsCSVName reports whether name has a .csv extension (any case).
func IsCSVName(name string) bool {
	return strings.EqualFold(path.Ext(name), ".csv")
}
