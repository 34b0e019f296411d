package application

import (
	"time"

	"github.com/imagelens/backend/internal/domain"
	"github.com/imagelens/backend/internal/ports"
)

// Config carries runtime policy knobs for the application layer.
type Config struct {
	TokenTTL time.Duration

	// Per-minute per-client budgets for the throttled endpoints.
	RegisterLimitPerMinute int
	LoginLimitPerMinute    int
	AnalyzeLimitPerMinute  int

	MaxUploadBytes    int64
	AllowedExtensions []string
	DefaultProvider   string
	TargetLang        string
}

type RegisterRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	CaptchaToken  string `json:"captcha_token"`
	CaptchaAnswer *int   `json:"captcha_respuesta"`

	ClientIP string `json:"-"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`

	ClientIP string `json:"-"`
}

type UserPayload struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	TotalAnalyses int64      `json:"total_analyses"`
}

type RegisterResponse struct {
	User UserPayload `json:"user"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserPayload `json:"user"`
}

type ChallengeResponse struct {
	Challenge ports.Challenge `json:"challenge"`
}

type AnalyzeRequest struct {
	UserID   int64
	FileName string
	Content  []byte
	Provider string
	ClientIP string
}

type AnalysisPayload struct {
	ID               string                  `json:"id"`
	FileName         string                  `json:"file_name"`
	Provider         string                  `json:"provider"`
	Labels           []domain.Label          `json:"labels"`
	TranslatedLabels []domain.TranslatedLabel `json:"translated_labels"`
	Interpretation   string                  `json:"interpretation"`
	AnalyzedAt       time.Time               `json:"analyzed_at"`
}

type HistoryPage struct {
	Analyses []AnalysisPayload `json:"analyses"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PerPage  int               `json:"per_page"`
}
