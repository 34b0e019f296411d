package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imagelens/backend/internal/ports"
)

func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisChallengeStore is the multi-instance challenge store. State lives in a
// hash per token; expiry is delegated to Redis TTLs instead of sweeping.
type RedisChallengeStore struct {
	client *redis.Client
}

func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (s *RedisChallengeStore) Issue(ctx context.Context) (ports.Challenge, error) {
	gen, err := newMathChallenge()
	if err != nil {
		return ports.Challenge{}, err
	}

	key := "captcha:" + gen.challenge.Token
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, "answer", gen.answer, "attempts", 0)
		p.Expire(ctx, key, challengeTTLSeconds*time.Second)
		return nil
	})
	if err != nil {
		return ports.Challenge{}, fmt.Errorf("store challenge: %w", err)
	}
	return gen.challenge, nil
}

// validateScript runs the whole lookup-increment-compare cycle inside Redis
// so concurrent validations of one token cannot race past the attempt cap.
// The entry survives the final wrong answer at attempts == max; the next
// call deletes it and reports exhaustion, same as the memory store.
var validateScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return {0, 0}
end
local max = tonumber(ARGV[2])
local attempts = tonumber(redis.call("HGET", key, "attempts") or "0")
if attempts >= max then
	redis.call("DEL", key)
	return {1, 0}
end
attempts = redis.call("HINCRBY", key, "attempts", 1)
if redis.call("HGET", key, "answer") == ARGV[1] then
	redis.call("DEL", key)
	return {2, 0}
end
return {3, max - attempts}
`)

func (s *RedisChallengeStore) Validate(ctx context.Context, token string, answer int) (ports.ChallengeValidation, error) {
	res, err := validateScript.Run(ctx, s.client,
		[]string{"captcha:" + token},
		strconv.Itoa(answer), maxChallengeAttempts,
	).Slice()
	if err != nil {
		return ports.ChallengeValidation{}, fmt.Errorf("validate challenge: %w", err)
	}
	if len(res) != 2 {
		return ports.ChallengeValidation{}, fmt.Errorf("unexpected challenge script reply: %v", res)
	}
	code, _ := res[0].(int64)
	remaining, _ := res[1].(int64)

	switch code {
	case 0:
		return ports.ChallengeValidation{Outcome: ports.ChallengeNotFoundOrExpired}, nil
	case 1:
		return ports.ChallengeValidation{Outcome: ports.ChallengeTooManyAttempts}, nil
	case 2:
		return ports.ChallengeValidation{Outcome: ports.ChallengeSuccess}, nil
	default:
		return ports.ChallengeValidation{
			Outcome:           ports.ChallengeWrongAnswer,
			RemainingAttempts: int(remaining),
		}, nil
	}
}

// RedisThrottle implements a sliding window with a sorted set per client,
// scored by unix nanos. Stale members are trimmed before counting.
type RedisThrottle struct {
	client *redis.Client
}

func NewRedisThrottle(client *redis.Client) *RedisThrottle {
	return &RedisThrottle{client: client}
}

func (t *RedisThrottle) Allow(ctx context.Context, clientID string, limitPerMinute int) (bool, error) {
	key := "throttle:" + clientID
	now := time.Now()
	cutoff := now.Add(-time.Minute)

	var card *redis.IntCmd
	_, err := t.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
		card = p.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return false, err
	}

	if int(card.Val()) >= limitPerMinute {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	_, err = t.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
		p.Expire(ctx, key, 2*time.Minute)
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
