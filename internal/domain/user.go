package domain

import "time"

// User is the credential aggregate for the access-control core.
// It keeps only auth-relevant state; analysis records reference it by id.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	IsActive     bool
}

// Label is a single classification result with provider confidence in [0,1].
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// TranslatedLabel is a label rendered in the caller's language, with the
// confidence rescaled to a whole percentage.
type TranslatedLabel struct {
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	Confidence   int    `json:"confidence"`
}

// Analysis records one classification run over an uploaded image.
// Labels are stored raw; translation and interpretation are recomputed on read.
type Analysis struct {
	ID         string
	UserID     int64
	FileName   string
	FilePath   string
	Provider   string
	Labels     []Label
	AnalyzedAt time.Time
}
