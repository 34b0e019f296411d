package ports

import (
	"context"
	"io"

	"github.com/imagelens/backend/internal/domain"
)

// LabelDetector turns raw image bytes into a ranked set of content labels.
// Implementations talk to external vision providers.
type LabelDetector interface {
	// DetectLabels returns labels ordered by descending confidence.
	DetectLabels(ctx context.Context, image []byte) ([]domain.Label, error)
	// Provider identifies the backing service, e.g. "google" or "imagga".
	Provider() string
}

// Translator translates short label texts into the target language.
// Implementations are best-effort: on failure callers fall back to the
// original text rather than failing the request.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// FileStore persists uploaded images outside the database.
type FileStore interface {
	// Save writes the content under a caller-scoped namespace and returns
	// the stored path relative to the store root.
	Save(userID int64, fileName string, content io.Reader) (string, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}
