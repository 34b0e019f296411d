package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imagelens/backend/internal/domain"
	"github.com/imagelens/backend/internal/ports"
)

// IssueChallenge hands out a fresh arithmetic challenge for registration.
// Issuance itself is not throttled; the register throttle is what gates
// abuse, and expired challenges are swept on every issue.
func (s *Service) IssueChallenge(ctx context.Context) (ChallengeResponse, error) {
	challenge, err := s.challenges.Issue(ctx)
	if err != nil {
		return ChallengeResponse{}, fmt.Errorf("issue challenge: %w", err)
	}
	return ChallengeResponse{Challenge: challenge}, nil
}

// Register creates a new account. The throttle runs before the challenge so a
// flooding client burns its budget without consuming challenge attempts, and
// the challenge runs before any credential work so bots never reach bcrypt.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	if err := s.allow(ctx, req.ClientIP, s.cfg.RegisterLimitPerMinute); err != nil {
		return RegisterResponse{}, err
	}

	if req.CaptchaToken == "" || req.CaptchaAnswer == nil {
		return RegisterResponse{}, domain.ErrCaptchaMissing
	}
	validation, err := s.challenges.Validate(ctx, req.CaptchaToken, *req.CaptchaAnswer)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("validate challenge: %w", err)
	}
	if err := challengeOutcomeError(validation); err != nil {
		return RegisterResponse{}, err
	}

	if err := domain.ValidateUsername(req.Username); err != nil {
		return RegisterResponse{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return RegisterResponse{}, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, ports.CreateUserParams{
		Username:     req.Username,
		PasswordHash: passwordHash,
		CreatedAt:    s.nowFn(),
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	slog.Default().InfoContext(ctx, "user registered",
		"module", "application",
		"layer", "application",
		"operation", "register",
		"outcome", "success",
		"user_id", user.ID,
	)
	return RegisterResponse{User: s.userPayload(ctx, user)}, nil
}

// Login verifies credentials and issues a signed session token. Every
// credential failure collapses into the same error so callers cannot probe
// which usernames exist.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	if err := s.allow(ctx, req.ClientIP, s.cfg.LoginLimitPerMinute); err != nil {
		return LoginResponse{}, err
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LoginResponse{}, domain.ErrAuthenticationFailed
		}
		return LoginResponse{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return LoginResponse{}, domain.ErrAuthenticationFailed
	}
	if !user.IsActive {
		return LoginResponse{}, domain.ErrAccountInactive
	}

	now := s.nowFn()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return LoginResponse{}, fmt.Errorf("touch last login: %w", err)
	}
	user.LastLoginAt = &now

	claims := ports.AuthClaims{
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}
	token, err := s.signer.Sign(claims)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	slog.Default().InfoContext(ctx, "user logged in",
		"module", "application",
		"layer", "application",
		"operation", "login",
		"outcome", "success",
		"user_id", user.ID,
	)
	return LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		User:      s.userPayload(ctx, user),
	}, nil
}

// VerifySession resolves a bearer token to its live user. The user row is
// re-read on every call so deactivation takes effect before token expiry.
func (s *Service) VerifySession(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrTokenMissing
	}
	claims, err := s.signer.ParseAndValidate(token)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrAuthenticationFailed
		}
		return domain.User{}, err
	}
	if !user.IsActive {
		return domain.User{}, domain.ErrAccountInactive
	}
	return user, nil
}

// Logout is intentionally a no-op on the server: tokens are stateless and
// expire on their own, so the client discards its copy.
func (s *Service) Logout(_ context.Context) {}

// Profile returns the caller's own account details.
func (s *Service) Profile(ctx context.Context, user domain.User) UserPayload {
	return s.userPayload(ctx, user)
}

func (s *Service) PublicJWKs() ([]map[string]any, error) {
	return s.signer.PublicJWKs()
}

func (s *Service) allow(ctx context.Context, clientID string, limit int) error {
	ok, err := s.throttle.Allow(ctx, clientID, limit)
	if err != nil {
		return fmt.Errorf("throttle check: %w", err)
	}
	if !ok {
		return domain.ErrRateLimited
	}
	return nil
}

func (s *Service) userPayload(ctx context.Context, user domain.User) UserPayload {
	total, err := s.users.CountAnalyses(ctx, user.ID)
	if err != nil {
		slog.Default().WarnContext(ctx, "failed to count analyses",
			"module", "application",
			"layer", "application",
			"operation", "count_analyses",
			"outcome", "failure",
			"user_id", user.ID,
			"error", err,
		)
	}
	return UserPayload{
		ID:            user.ID,
		Username:      user.Username,
		CreatedAt:     user.CreatedAt,
		LastLoginAt:   user.LastLoginAt,
		TotalAnalyses: total,
	}
}

func challengeOutcomeError(v ports.ChallengeValidation) error {
	switch v.Outcome {
	case ports.ChallengeSuccess:
		return nil
	case ports.ChallengeNotFoundOrExpired:
		return domain.ErrCaptchaNotFound
	case ports.ChallengeTooManyAttempts:
		return domain.ErrCaptchaExhausted
	default:
		return fmt.Errorf("%w: %d attempts remaining", domain.ErrCaptchaWrongAnswer, v.RemainingAttempts)
	}
}
