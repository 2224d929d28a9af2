package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"github.com/redis/go-redis/v9"
)

var (
	_ ports.StatsStore  = (*RedisStore)(nil)
	_ ports.StatsReader = (*RedisStore)(nil)
)

type RedisStore struct {
	rdb *redis.Client

	prefix string
	// ttl s'applique aux buckets horaires; les totaux n'expirent pas.
	ttl time.Duration
}

type RedisOption func(*RedisStore)

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "pagebroker:stats",
		ttl:    7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Record(ctx context.Context, ev ports.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Outcome)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:hour:%s", s.prefix, at.UTC().Format("2006010215"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	if ev.SeriesID != 0 {
		pipe.HIncrBy(ctx, fmt.Sprintf("%s:series:%d", s.prefix, ev.SeriesID), field, 1)
	}
	if redeemed(ev) {
		pipe.HIncrBy(ctx, s.prefix+":account", strconv.FormatInt(ev.AccountID, 10), 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Summary(ctx context.Context) (ports.StatsSummary, error) {
	out := ports.StatsSummary{Total: map[ports.Outcome]int64{}, ByAccount: map[int64]int64{}}
	if s == nil || s.rdb == nil {
		return out, nil
	}
	total, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return ports.StatsSummary{}, err
	}
	for k, v := range total {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out.Total[ports.Outcome(k)] = n
	}
	accounts, err := s.rdb.HGetAll(ctx, s.prefix+":account").Result()
	if err != nil {
		return ports.StatsSummary{}, err
	}
	for k, v := range accounts {
		id, err1 := strconv.ParseInt(k, 10, 64)
		n, err2 := strconv.ParseInt(v, 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out.ByAccount[id] = n
	}
	return out, nil
}
