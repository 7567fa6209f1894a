package circuitbreaker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type RedisBreaker struct {
	// Redis client used to read and update the circuit state.
	rdb redis.UniversalClient
	// Combined with the prefix to build the redis keys.
	name string
	opts Options
	// Records a failure and opens the circuit atomically.
	failScript *redis.Script
	logger     *slog.Logger
}

var _ Breaker = (*RedisBreaker)(nil)

// KEYS: fails, open, half, tripped
// ARGV: fail window ms, threshold, open cooldown ms
const failLua = `
local failsKey   = KEYS[1]
local openKey    = KEYS[2]
local halfKey    = KEYS[3]
local trippedKey = KEYS[4]

local failWindowMs   = tonumber(ARGV[1])
local threshold      = tonumber(ARGV[2])
local openCooldownMs = tonumber(ARGV[3])

local fails = redis.call("INCR", failsKey)

local ttl = redis.call("PTTL", failsKey)
if ttl < 0 then
	redis.call("PEXPIRE", failsKey, failWindowMs)
end

local probing = redis.call("EXISTS", trippedKey)
if fails >= threshold or probing == 1 then
	redis.call("SET", openKey, "1", "PX", openCooldownMs)
	redis.call("SET", trippedKey, "1")
	redis.call("DEL", failsKey)
	redis.call("DEL", halfKey)
	return {fails, "opened"}
end

redis.call("DEL", halfKey)
return {fails, "closed"}
`

func NewRedisBreaker(rdb redis.UniversalClient, name string, opts Options, logger *slog.Logger) *RedisBreaker {
	if opts.FailureThreshold <= 0 {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisBreaker{
		rdb:        rdb,
		name:       name,
		opts:       opts,
		failScript: redis.NewScript(failLua),
		logger: logger.With(
			slog.String("component", "circuitbreaker"),
			slog.String("breaker", name),
		),
	}
}

func (b *RedisBreaker) keys() (openKey, failsKey, halfKey, trippedKey string) {
	prefix := b.opts.Prefix + b.name + ":"
	return prefix + "open", prefix + "fails", prefix + "half", prefix + "tripped"
}

// Allow returns nil if the call may proceed, or ErrCircuitOpen if it must be blocked.
// Once the cooldown expires a single caller holding the half-open lease is let through.
func (b *RedisBreaker) Allow(ctx context.Context) error {
	openKey, _, halfKey, trippedKey := b.keys()

	exists, err := b.rdb.Exists(ctx, openKey, trippedKey).Result()
	if err != nil {
		return b.blind(ctx, err)
	}
	if exists == 0 {
		return nil
	}

	open, err := b.rdb.Exists(ctx, openKey).Result()
	if err != nil {
		return b.blind(ctx, err)
	}
	if open == 1 {
		return ErrCircuitOpen
	}

	acquired, err := b.rdb.SetNX(ctx, halfKey, "1", b.opts.HalfOpenLease).Result()
	if err != nil {
		return b.blind(ctx, err)
	}
	if !acquired {
		return ErrCircuitOpen
	}

	b.logger.InfoContext(ctx, "circuit half-open, probing")
	return nil
}

func (b *RedisBreaker) blind(ctx context.Context, err error) error {
	b.logger.WarnContext(ctx, "circuit state unavailable", "err", err, "failOpen", b.opts.FailOpen)
	if b.opts.FailOpen {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
}

func (b *RedisBreaker) OnSuccess(ctx context.Context) {
	_, failsKey, halfKey, trippedKey := b.keys()

	closed, err := b.rdb.Del(ctx, failsKey, halfKey, trippedKey).Result()
	if err != nil {
		b.logger.WarnContext(ctx, "failed to record success", "err", err)
		return
	}
	if closed > 0 {
		b.logger.DebugContext(ctx, "circuit counters reset")
	}
}

func (b *RedisBreaker) OnFailure(ctx context.Context) {
	openKey, failsKey, halfKey, trippedKey := b.keys()

	res, err := b.failScript.Run(
		ctx,
		b.rdb,
		[]string{failsKey, openKey, halfKey, trippedKey},
		b.opts.FailWindow.Milliseconds(),
		b.opts.FailureThreshold,
		b.opts.OpenCoolDown.Milliseconds(),
	).Slice()
	if err != nil {
		b.logger.WarnContext(ctx, "failed to record failure", "err", err)
		return
	}

	if len(res) == 2 && res[1] == "opened" {
		b.logger.WarnContext(ctx, "circuit opened", "fails", res[0], "cooldown", b.opts.OpenCoolDown)
	}
}

// State reads the current circuit state without changing it.
func (b *RedisBreaker) State(ctx context.Context) State {
	openKey, _, halfKey, trippedKey := b.keys()

	open, err := b.rdb.Exists(ctx, openKey).Result()
	if err != nil {
		return StateUnknown
	}
	if open == 1 {
		return StateOpen
	}

	tripped, err := b.rdb.Exists(ctx, trippedKey, halfKey).Result()
	if err != nil {
		return StateUnknown
	}
	if tripped == 0 {
		return StateClosed
	}
	return StateHalfOpen
}
