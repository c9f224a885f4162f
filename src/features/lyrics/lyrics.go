package lyrics

import (
	"context"
	"fmt"

	"github.com/contre95/lrcsync/src/music"
)

// LyricsProvider defines the interface for fetching lyrics from external services
type LyricsProvider interface {
	// ExactLookup returns the single record matching every field of the query,
	// or nil without error when the provider has no such record.
	ExactLookup(ctx context.Context, query music.Query) (*music.LyricsRecord, error)

	// Search returns candidates in the provider's relevance order. An empty slice is not an error.
	Search(ctx context.Context, query music.Query) ([]*music.LyricsRecord, error)

	// Name returns the provider name
	Name() string
}

// ProviderError is returned by providers for every transport, protocol or decoding failure.
type ProviderError struct {
	Provider  string
	Operation string
	Status    int // HTTP status when the failure came from a response, 0 otherwise
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d: %v", e.Provider, e.Operation, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
