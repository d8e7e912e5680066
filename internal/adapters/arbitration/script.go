package arbitration

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// raiseScript is the server-side arbitration routine. Redis executes scripts
// without interleaving other commands, so the compare-and-replace below is
// indivisible per key. A missing key reads as price 0, and the comparison is
// strictly greater: an equal bid never displaces the incumbent.
const raiseScript = `
local key = KEYS[1]
local amount = tonumber(ARGV[1])
local bidder = ARGV[2]

local current = tonumber(redis.call('HGET', key, 'price')) or 0

if amount > current then
    redis.call('HSET', key, 'price', amount, 'bidder', bidder)
    return 1
end
return 0
`

// initScript seeds the pair only when the key is absent. Running the check
// and the write server-side keeps item setup atomic with respect to raises.
const initScript = `
local key = KEYS[1]

if redis.call('EXISTS', key) == 1 then
    return 0
end
redis.call('HSET', key, 'price', ARGV[1], 'bidder', ARGV[2])
return 1
`

// ScriptRunner owns the cached SHA of the loaded arbitration script. Redis
// evicts compiled scripts on restart or SCRIPT FLUSH; when EvalSha reports
// NOSCRIPT the runner reloads the script exactly once, swaps the cached SHA,
// and retries exactly once. Any other error is returned untouched.
//
// Concurrent callers may race to reload after the same eviction; that is
// benign since loading is idempotent and yields the same SHA.
type ScriptRunner struct {
	rdb redis.Scripter

	mu  sync.RWMutex
	sha string
}

// NewScriptRunner loads the arbitration script and caches its SHA.
func NewScriptRunner(ctx context.Context, rdb redis.Scripter) (*ScriptRunner, error) {
	r := &ScriptRunner{rdb: rdb}
	if _, err := r.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load arbitration script: %w", err)
	}
	return r, nil
}

// Reload re-registers the script with the store and swaps the cached SHA.
// Exposed so operational tooling can re-register after a store restart.
func (r *ScriptRunner) Reload(ctx context.Context) (string, error) {
	sha, err := r.rdb.ScriptLoad(ctx, raiseScript).Result()
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.sha = sha
	r.mu.Unlock()
	return sha, nil
}

// Run evaluates the arbitration script against the given key, recovering
// from script eviction with a single reload-and-retry.
func (r *ScriptRunner) Run(ctx context.Context, key string, amount int64, bidderID string) (int64, error) {
	res, err := r.rdb.EvalSha(ctx, r.currentSHA(), []string{key}, amount, bidderID).Int64()
	if err == nil {
		return res, nil
	}
	if !redis.HasErrorPrefix(err, "NOSCRIPT") {
		return 0, err
	}

	sha, loadErr := r.Reload(ctx)
	if loadErr != nil {
		return 0, fmt.Errorf("failed to reload arbitration script: %w", loadErr)
	}

	return r.rdb.EvalSha(ctx, sha, []string{key}, amount, bidderID).Int64()
}

func (r *ScriptRunner) currentSHA() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sha
}
