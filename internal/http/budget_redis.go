package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// spendScript charges ARGV[1] units against KEYS[1] unless that would pass
// ARGV[2] in a window that already has spending. It returns
// {allowed, spent, ttl_ms}.
var spendScript = redis.NewScript(`
local spent = tonumber(redis.call('GET', KEYS[1]) or '0')
local cost = tonumber(ARGV[1])
if spent > 0 and spent + cost > tonumber(ARGV[2]) then
  return {0, spent, redis.call('PTTL', KEYS[1])}
end
spent = redis.call('INCRBY', KEYS[1], cost)
if spent == cost then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return {1, spent, redis.call('PTTL', KEYS[1])}
`)

// redisBudget shares one ledger across dashboard replicas.
type redisBudget struct {
	client  *redis.Client
	logger  *slog.Logger
	limit   int
	window  time.Duration
	prefix  string
	timeout time.Duration
}

// NewRedisBudget connects to addr and grants limit units per client per
// window across every replica using the same Redis.
func NewRedisBudget(addr, password string, db, limit int, window time.Duration, logger *slog.Logger) (Budget, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("query budget redis %s: %w", addr, err)
	}
	return newRedisBudget(client, limit, window, logger), nil
}

func newRedisBudget(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *redisBudget {
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &redisBudget{
		client:  client,
		logger:  logger,
		limit:   limit,
		window:  window,
		prefix:  "cubedash:budget:",
		timeout: 250 * time.Millisecond,
	}
}

// Spend fails open: an unreachable Redis must not take the dashboard down.
func (b *redisBudget) Spend(ctx context.Context, client string, cost int) Receipt {
	if b.limit <= 0 {
		return unmetered
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	out, err := spendScript.Run(ctx, b.client, []string{b.prefix + client},
		max(cost, 1), b.limit, b.window.Milliseconds()).Int64Slice()
	if err != nil || len(out) != 3 {
		b.logger.Warn("query budget unavailable, not metering", "client", client, "error", err)
		return unmetered
	}
	ttl := time.Duration(out[2]) * time.Millisecond
	if ttl <= 0 {
		ttl = b.window
	}
	return Receipt{
		Allowed: out[0] == 1,
		Limit:   b.limit,
		Spent:   int(out[1]),
		Resets:  time.Now().Add(ttl),
	}
}

func (b *redisBudget) Close() error {
	return b.client.Close()
}
