package cache

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mathrand "math/rand/v2"

	"github.com/imagelens/backend/internal/ports"
)

const (
	challengeTTLSeconds  = 300
	maxChallengeAttempts = 3
)

// generatedChallenge pairs a caller-visible challenge with its expected answer.
type generatedChallenge struct {
	challenge ports.Challenge
	answer    int
}

// newMathChallenge builds a random arithmetic challenge. Operand ranges are
// tuned so subtraction never goes negative and products stay two digits.
func newMathChallenge() (generatedChallenge, error) {
	token, err := newChallengeToken()
	if err != nil {
		return generatedChallenge{}, err
	}

	var kind, op string
	var a, b, answer int
	switch mathrand.IntN(3) {
	case 0:
		kind, op = "add", "+"
		a = 1 + mathrand.IntN(20)
		b = 1 + mathrand.IntN(20)
		answer = a + b
	case 1:
		kind, op = "sub", "-"
		a = 10 + mathrand.IntN(21)
		b = 1 + mathrand.IntN(10)
		answer = a - b
	default:
		kind, op = "mul", "*"
		a = 2 + mathrand.IntN(9)
		b = 2 + mathrand.IntN(9)
		answer = a * b
	}

	return generatedChallenge{
		challenge: ports.Challenge{
			Token:    token,
			Question: fmt.Sprintf("What is %d %s %d?", a, op, b),
			Kind:     kind,
		},
		answer: answer,
	}, nil
}

func newChallengeToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate challenge token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
