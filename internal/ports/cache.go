package ports

import "context"

// Challenge is the caller-visible half of a math captcha. The expected
// answer stays inside the store and is never transmitted.
type Challenge struct {
	Token    string `json:"token"`
	Question string `json:"question"`
	Kind     string `json:"kind"`
}

// ChallengeOutcome classifies a validation attempt.
type ChallengeOutcome int

const (
	ChallengeSuccess ChallengeOutcome = iota
	// ChallengeNotFoundOrExpired covers never-issued, already-consumed, and
	// swept-as-stale tokens; callers cannot distinguish the three.
	ChallengeNotFoundOrExpired
	ChallengeWrongAnswer
	ChallengeTooManyAttempts
)

// ChallengeValidation is the result of one validation attempt.
// RemainingAttempts is meaningful only for ChallengeWrongAnswer.
type ChallengeValidation struct {
	Outcome           ChallengeOutcome
	RemainingAttempts int
}

// ChallengeStore issues and validates short-lived human-verification
// challenges. Every token is single-use: success consumes it, attempt
// exhaustion deletes it, and only a wrong-but-not-exhausted answer keeps it
// alive for a retry.
type ChallengeStore interface {
	Issue(ctx context.Context) (Challenge, error)
	Validate(ctx context.Context, token string, answer int) (ChallengeValidation, error)
}

// RequestThrottle is a sliding-window request counter per client identifier.
// The throttle is limit-agnostic; each caller supplies its own threshold, so
// distinct endpoints can share one store with different budgets.
type RequestThrottle interface {
	Allow(ctx context.Context, clientID string, limitPerMinute int) (bool, error)
}
