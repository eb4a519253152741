package catalog

import (
	"context"
	"fmt"
)

// ObjectFetcher downloads a whole object from object storage.
type ObjectFetcher interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// FromObject fetches a rooms JSON document once and parses it.
func FromObject(ctx context.Context, fetcher ObjectFetcher, key string) (*Catalog, error) {
	data, err := fetcher.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %q: %w", key, err)
	}
	return Parse(data)
}
