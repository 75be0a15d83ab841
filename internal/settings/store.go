package settings

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store 设置的键值存储
type Store interface {
	// Load 读取指定键，缺失的键不出现在结果中
	Load(ctx context.Context, keys []string) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
	// Clear 删除全部已保存的设置
	Clear(ctx context.Context) error
}

// RedisStore 以一个 Redis hash 保存设置
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore 创建 Redis 设置存储
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "typeset:settings"
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context, keys []string) (map[string]string, error) {
	vals, err := s.client.HMGet(ctx, s.key, keys...).Result()
	if err != nil {
		return nil, err
	}

	items := make(map[string]string, len(keys))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			items[keys[i]] = str
		}
	}
	return items, nil
}

func (s *RedisStore) Save(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	return s.client.HSet(ctx, s.key, fields).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// MemoryStore 进程内设置存储
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStore 创建内存设置存储，可带初始值
func NewMemoryStore(initial map[string]string) *MemoryStore {
	items := make(map[string]string, len(initial))
	for k, v := range initial {
		items[k] = v
	}
	return &MemoryStore{items: items}
}

func (s *MemoryStore) Load(_ context.Context, keys []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.items[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.items[k] = v
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]string)
	return nil
}
