package frontierstore

import (
	"context"
	"sync"
)

// fakeRedis is a minimal in-memory RedisClient. The retrieved example
// pack has no miniredis-style in-process Redis server, so tests across
// this package and its dependents (internal/frontier, internal/politeness)
// exercise Store logic against this hand-rolled fake instead of pulling
// in an ungrounded dependency.
type fakeRedis struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	lists  map[string][]string
	sets   map[string]map[string]bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
		sets:   make(map[string]map[string]bool),
	}
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for k, v := range values {
		h[k] = v
	}
	return nil
}

func (f *fakeRedis) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	cur := parseInt64(h[field])
	cur += incr
	h[field] = itoa64(cur)
	return cur, nil
}

func (f *fakeRedis) RPush(ctx context.Context, key string, values ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append(f.lists[key], values...)
	return nil
}

func (f *fakeRedis) LPop(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vals := f.lists[key]
	if len(vals) == 0 {
		return "", ErrNotFound
	}
	v := vals[0]
	f.lists[key] = vals[1:]
	return v, nil
}

func (f *fakeRedis) SAdd(ctx context.Context, key, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sets[key]
	if !ok {
		s = make(map[string]bool)
		f.sets[key] = s
	}
	s[member] = true
	return nil
}

func (f *fakeRedis) SRem(ctx context.Context, key, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sets[key], member)
	return nil
}

func (f *fakeRedis) SIsMember(ctx context.Context, key, member string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[key][member], nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.hashes, k)
		delete(f.lists, k)
		delete(f.sets, k)
	}
	return nil
}

func (f *fakeRedis) Exists(ctx context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.hashes[k]; ok {
			n++
			continue
		}
		if _, ok := f.lists[k]; ok {
			n++
			continue
		}
		if _, ok := f.sets[k]; ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeRedis) BLPop(ctx context.Context, timeoutSeconds int64, keys ...string) ([]string, error) {
	for _, k := range keys {
		if v, err := f.LPop(ctx, k); err == nil {
			return []string{k, v}, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRedis) Close() error { return nil }

func itoa64(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// MemRedisClient is an in-memory RedisClient, exported for use by other
// packages' tests (internal/frontier, internal/politeness) that need a
// Store without a live Redis server.
type MemRedisClient struct {
	*fakeRedis
}

// NewMemRedisClient builds an empty in-memory RedisClient.
func NewMemRedisClient() *MemRedisClient {
	return &MemRedisClient{fakeRedis: newFakeRedis()}
}

var _ RedisClient = (*MemRedisClient)(nil)
