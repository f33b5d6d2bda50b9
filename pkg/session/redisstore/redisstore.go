// Package redisstore persists sessions in Redis. Each session is a hash at
// prefix+"session:"+id holding its JSON turns and turn count; prefix+"idx"
// is a sorted set of ids scored by last update.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gentaxai/gentax/pkg/session"
)

const defaultPrefix = "gentax:sess:"

// upsertScript writes the session only when the new transcript is longer
// than the stored one.
var upsertScript = redis.NewScript(`
local sess_key = KEYS[1]
local idx_key = KEYS[2]
local turns = ARGV[1]
local count = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local id = ARGV[4]
local current = tonumber(redis.call('HGET', sess_key, 'turn_count') or '0')
if current >= count then return 0 end
redis.call('HSET', sess_key, 'turns', turns, 'turn_count', count)
redis.call('ZADD', idx_key, now, id)
return 1`)

// Driver implements session.Driver on a Redis client.
type Driver struct {
	client redis.UniversalClient
	prefix string
}

// NewDriver connects to addr and verifies the connection with PING.
func NewDriver(ctx context.Context, addr, prefix string) (*Driver, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return NewDriverFromClient(client, prefix), nil
}

// NewDriverFromClient wraps an existing client.
func NewDriverFromClient(client redis.UniversalClient, prefix string) *Driver {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Driver{client: client, prefix: prefix}
}

func (d *Driver) idxKey() string            { return d.prefix + "idx" }
func (d *Driver) sessKey(id string) string { return d.prefix + "session:" + id }

// Load reads every indexed session with one pipelined round trip.
func (d *Driver) Load(ctx context.Context) (map[string][]session.Turn, error) {
	ids, err := d.client.ZRange(ctx, d.idxKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	out := map[string][]session.Turn{}
	if len(ids) == 0 {
		return out, nil
	}

	pipe := d.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, d.sessKey(id), "turns")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reading sessions: %w", err)
	}

	var bad []string
	for i, cmd := range cmds {
		raw, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			// indexed but expired or deleted out of band
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading session %s: %w", ids[i], err)
		}

		var turns []session.Turn
		if err := json.Unmarshal([]byte(raw), &turns); err != nil {
			bad = append(bad, ids[i])
			continue
		}
		out[ids[i]] = turns
	}

	if len(bad) > 0 {
		return out, fmt.Errorf("%w: redis sessions %s", session.ErrMalformed, strings.Join(bad, ", "))
	}
	return out, nil
}

// Save runs the conditional upsert for every changed session.
func (d *Driver) Save(ctx context.Context, snap session.Snapshot) error {
	now := time.Now().Unix()
	for _, id := range snap.Changed {
		turns, ok := snap.Sessions[id]
		if !ok {
			continue
		}

		raw, err := json.Marshal(turns)
		if err != nil {
			return fmt.Errorf("encoding session %s: %w", id, err)
		}

		keys := []string{d.sessKey(id), d.idxKey()}
		if err := upsertScript.Run(ctx, d.client, keys, string(raw), len(turns), now, id).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("saving session %s: %w", id, err)
		}
	}
	return nil
}

func (d *Driver) Close() error {
	return d.client.Close()
}
