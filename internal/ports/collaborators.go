// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external tools.
package ports

import (
	"context"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

// MetadataResolver turns an audio file into a metadata record.
// The library treats it as a black box.
//
// Implementations return domain.ErrFileNotFound, domain.ErrUnsupportedFormat or
// domain.ErrUnresolvable (possibly wrapped) for files that cannot be described;
// callers skip such files instead of aborting.
type MetadataResolver interface {
	Resolve(path string) (*domain.TrackMetadata, error)
}

// MetadataResolverFunc adapts a plain function to MetadataResolver.
type MetadataResolverFunc func(path string) (*domain.TrackMetadata, error)

// Resolve calls f(path).
func (f MetadataResolverFunc) Resolve(path string) (*domain.TrackMetadata, error) {
	return f(path)
}

// ArtworkSource extracts embedded album artwork from an audio file.
type ArtworkSource interface {
	// Artwork returns the raw image bytes, or domain.ErrUnresolvable if the file has none.
	Artwork(path string) ([]byte, error)
}

// SearchProvider queries the external search collaborator.
//
// Search blocks until results arrive, the collaborator fails, or ctx is done.
// It must only be called from background workers. Implementations must tolerate
// a missing binary, non-zero exit codes and malformed output by returning an
// error wrapping domain.ErrSearchUnavailable.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error)
}

// SearchProviderFunc adapts a plain function to SearchProvider.
type SearchProviderFunc func(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error)

// Search calls f(ctx, query, maxResults).
func (f SearchProviderFunc) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	return f(ctx, query, maxResults)
}
