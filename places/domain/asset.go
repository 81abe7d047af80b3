package domain

import "context"

// ImageReference is a URL into the remote media store. Two references denote the same
// asset when they carry the same identifier, regardless of transform segments.
type ImageReference string

// DeleteOutcome is the per-identifier result of a delete call. The string values match
// the delete proxy's wire format.
type DeleteOutcome string

const (
	OutcomeDeleted  DeleteOutcome = "ok"
	OutcomeNotFound DeleteOutcome = "not found"
	OutcomeError    DeleteOutcome = "error"
)

// AssetUploader stores image bytes in the remote media store.
type AssetUploader interface {
	// Upload returns the secure URL of the stored asset.
	Upload(ctx context.Context, data []byte, filename string, folder string) (ImageReference, error)
}

// AssetDeleter removes assets from the remote media store by identifier.
// Failures of single identifiers are reported in the returned map; the error return
// is reserved for problems that prevent the whole batch, such as missing credentials.
type AssetDeleter interface {
	Delete(ctx context.Context, ids []string) (map[string]DeleteOutcome, error)
}

// AssetStore is the full remote media store client.
type AssetStore interface {
	AssetUploader
	AssetDeleter
}
