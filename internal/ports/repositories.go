package ports

import (
	"context"
	"time"

	"github.com/imagelens/backend/internal/domain"
)

// CreateUserParams captures the atomic user-creation inputs. The username
// uniqueness invariant is enforced by the repository (unique constraint), not
// by a separate lookup, so concurrent registrations cannot race past it.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository defines persistence operations for user credentials.
type UserRepository interface {
	Create(ctx context.Context, params CreateUserParams) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
	Deactivate(ctx context.Context, userID int64) error
	CountAnalyses(ctx context.Context, userID int64) (int64, error)
}

// AnalysisRepository manages persisted classification runs. All reads are
// scoped by owner so one user can never see another user's history.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis domain.Analysis) error
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]domain.Analysis, int64, error)
	GetByID(ctx context.Context, id string, userID int64) (domain.Analysis, error)
	Delete(ctx context.Context, id string, userID int64) error
}
