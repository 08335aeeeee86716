// Package datasource opens the bytes fed to an invocation's data channel.
package datasource

import (
	"context"
	"io"
	"strings"

	"github.com/NeoOrigin/flint-sub000/internal/datasource/file"
	"github.com/NeoOrigin/flint-sub000/internal/datasource/httpds"
)

// Source yields a fresh reader on every Open.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// For picks a Source for location: http(s) URLs are fetched with client,
// "-" is standard input and anything else is a local path.
func For(location string, client *httpds.Client) Source {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if client == nil {
			client = httpds.NewClient(httpds.Config{})
		}
		return httpds.NewSource(client, location)
	}
	return file.NewLocal(location)
}
