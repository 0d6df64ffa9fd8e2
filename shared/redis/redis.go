// Package redis implements the shared tier on top of go-redis.
package redis

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/defilytics/tiercache/shared"
)

var ErrNilClient = errors.New("redis shared tier: nil client")

// DefaultOpTimeout bounds every round trip so an unresponsive server reads
// as a tier failure instead of a hung request.
const DefaultOpTimeout = 5 * time.Second

const defaultScanCount = 256

type Store struct {
	rdb         goredis.UniversalClient
	opTimeout   time.Duration
	scanCount   int64
	closeClient bool
}

var _ shared.Store = (*Store)(nil)

type Config struct {
	Client goredis.UniversalClient
	// OpTimeout is the per-operation deadline; 0 => DefaultOpTimeout.
	OpTimeout time.Duration
	// ScanCount is the COUNT hint for SCAN; 0 => 256.
	ScanCount int64
	// CloseClient: set true only if this store exclusively owns the client.
	CloseClient bool
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	s := &Store{
		rdb:         cfg.Client,
		opTimeout:   cfg.OpTimeout,
		scanCount:   cfg.ScanCount,
		closeClient: cfg.CloseClient,
	}
	if s.opTimeout <= 0 {
		s.opTimeout = DefaultOpTimeout
	}
	if s.scanCount <= 0 {
		s.scanCount = defaultScanCount
	}
	return s, nil
}

func (s *Store) opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.opTimeout)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	b, err := s.rdb.Get(qctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0 // non-positive => no expiry, per the Store contract
	}
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.rdb.Set(qctx, key, value, ttl).Err()
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.rdb.Del(qctx, keys...).Result()
}

func (s *Store) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	qctx, cancel := s.opCtx(ctx)
	defer cancel()

	var out []string
	iter := s.rdb.Scan(qctx, 0, pattern, s.scanCount).Iterator()
	for iter.Next(qctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) TTLRemaining(ctx context.Context, key string) (time.Duration, bool, error) {
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	d, err := s.rdb.TTL(qctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	// go-redis passes through redis sentinels: -2 key missing, -1 no expiry.
	switch d {
	case -2:
		return 0, false, nil
	case -1:
		return -1, true, nil
	}
	return d, true, nil
}

func (s *Store) Info(ctx context.Context) (shared.Info, error) {
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	res, err := s.rdb.Info(qctx, "memory", "clients").Result()
	if err != nil {
		return shared.Info{}, err
	}
	return parseInfo(res), nil
}

// Close releases the underlying client only when this store owns it.
// Safe to call multiple times.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// parseInfo extracts used_memory and connected_clients from an INFO reply.
// Unknown or malformed lines are skipped; missing fields stay zero.
func parseInfo(raw string) shared.Info {
	var info shared.Info
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if v, ok := strings.CutPrefix(line, "used_memory:"); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				info.MemoryUsedBytes = n
			}
			continue
		}
		if v, ok := strings.CutPrefix(line, "connected_clients:"); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				info.ConnectedClients = n
			}
		}
	}
	return info
}
