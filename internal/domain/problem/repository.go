package problem

import "context"

// StatusSource provides read access to the attempt-status table.
type StatusSource interface {
	// StatusesByUser returns every attempt-status row for the user across
	// all domains. This is cumulative: no time filter.
	StatusesByUser(ctx context.Context, userID int64) ([]AttemptStatus, error)
}

// MetadataSource provides batched read access to problem reference data.
type MetadataSource interface {
	// MetadataBatch returns metadata for the given problem ids within one
	// domain. Problems without a metadata row are simply absent from the
	// result; that is not an error.
	MetadataBatch(ctx context.Context, domain string, problemIDs []int64) ([]Metadata, error)
}
