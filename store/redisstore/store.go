package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/CitoC/IDM-Service/token"
	"github.com/redis/go-redis/v9"
)

// ErrDuplicateValue reports an insert for a token value that already holds
// a record. Token values are 128-bit random, so this signals a caller bug,
// not a collision to retry.
var ErrDuplicateValue = errors.New("refresh token value already stored")

const (
	insertCodeExists int64 = -1

	updateCodeNotFound int64 = -1
	updateCodeConflict int64 = 0
	updateCodeApplied  int64 = 1
)

var insertTokenLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return -1
end
local id = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1],
  "id", id,
  "account_id", ARGV[1],
  "status", ARGV[2],
  "expire", ARGV[3],
  "max_life", ARGV[4])
return id
`)

var conditionalUpdateLua = redis.NewScript(`
local status = redis.call("HGET", KEYS[1], "status")
if not status then
  return -1
end
if status ~= ARGV[1] then
  return 0
end
if redis.call("HGET", KEYS[1], "expire") ~= ARGV[2] then
  return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[3], "expire", ARGV[4])
return 1
`)

// Store is a Redis-backed token.Store. Immutable after construction, safe
// for concurrent use.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore binds a store to client under the given key prefix ("idm" when
// empty).
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "idm"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) tokenKey(value string) string {
	return s.prefix + ":rt:" + value
}

func (s *Store) seqKey() string {
	return s.prefix + ":rt:seq"
}

// Insert persists t and assigns its id from the store sequence.
func (s *Store) Insert(ctx context.Context, t *token.Token) error {
	res, err := insertTokenLua.Run(ctx, s.client,
		[]string{s.tokenKey(t.Value), s.seqKey()},
		strconv.FormatInt(t.AccountID, 10),
		strconv.FormatUint(uint64(t.Status), 10),
		strconv.FormatInt(t.ExpireTime.UnixNano(), 10),
		strconv.FormatInt(t.MaxLifeTime.UnixNano(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("redis insert: %w", err)
	}
	if res == insertCodeExists {
		return ErrDuplicateValue
	}

	t.ID = res
	return nil
}

// FindByValue fetches the record hash for value, or token.ErrNotFound.
func (s *Store) FindByValue(ctx context.Context, value string) (*token.Token, error) {
	fields, err := s.client.HGetAll(ctx, s.tokenKey(value)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lookup: %w", err)
	}
	if len(fields) == 0 {
		return nil, token.ErrNotFound
	}

	return parseRecord(value, fields)
}

// ConditionalUpdate writes t's status and expire time only while the stored
// record still matches prior. The compare and the write happen in one Lua
// script, so concurrent callers observe exactly one winner.
func (s *Store) ConditionalUpdate(ctx context.Context, t *token.Token, prior token.Expected) error {
	if !token.ValidTransition(prior.Status, t.Status) {
		return token.ErrIllegalTransition
	}

	res, err := conditionalUpdateLua.Run(ctx, s.client,
		[]string{s.tokenKey(t.Value)},
		strconv.FormatUint(uint64(prior.Status), 10),
		strconv.FormatInt(prior.ExpireTime.UnixNano(), 10),
		strconv.FormatUint(uint64(t.Status), 10),
		strconv.FormatInt(t.ExpireTime.UnixNano(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("redis conditional update: %w", err)
	}

	switch res {
	case updateCodeApplied:
		return nil
	case updateCodeConflict:
		return token.ErrConflict
	case updateCodeNotFound:
		return token.ErrNotFound
	default:
		return fmt.Errorf("redis conditional update: unexpected script result %d", res)
	}
}

func parseRecord(value string, fields map[string]string) (*token.Token, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt token record %q: bad id: %w", value, err)
	}
	accountID, err := strconv.ParseInt(fields["account_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt token record %q: bad account id: %w", value, err)
	}
	status, err := strconv.ParseUint(fields["status"], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("corrupt token record %q: bad status: %w", value, err)
	}
	expire, err := strconv.ParseInt(fields["expire"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt token record %q: bad expire time: %w", value, err)
	}
	maxLife, err := strconv.ParseInt(fields["max_life"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt token record %q: bad max lifetime: %w", value, err)
	}

	return &token.Token{
		ID:          id,
		Value:       value,
		AccountID:   accountID,
		Status:      token.Status(status),
		ExpireTime:  time.Unix(0, expire),
		MaxLifeTime: time.Unix(0, maxLife),
	}, nil
}
