package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss ключа нет в Redis
var ErrCacheMiss = errors.New("cache miss")

// Ключи и каналы склада
const (
	KeySkladItemPrefix = "sklad:item:"       // Кэш карточки позиции
	KeyPodMinimem      = "sklad:pod_minimem" // Множество позиций под минимумом
	KeyLoginFailPrefix = "sklad:login_fail:" // Счетчик неудачных входов
	ChannelMovements   = "sklad:movements"   // Pub/Sub события движения
)

// RedisClient обертка над Redis клиентом для удобной работы
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient создает новый Redis клиент
func NewRedisClient(client *redis.Client) *RedisClient {
	return &RedisClient{
		client: client,
		ctx:    context.Background(),
	}
}

func encode(value interface{}) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Set сохраняет значение с TTL (не строки сериализуются в JSON)
func (r *RedisClient) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, key, data, ttl).Err()
}

// GetJSON получает и парсит JSON значение, ErrCacheMiss если ключа нет
func (r *RedisClient) GetJSON(key string, dest interface{}) error {
	data, err := r.client.Get(r.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// Delete удаляет ключи
func (r *RedisClient) Delete(keys ...string) error {
	return r.client.Del(r.ctx, keys...).Err()
}

// IncrementWindow увеличивает счетчик; TTL ставится при первом увеличении
func (r *RedisClient) IncrementWindow(key string, window time.Duration) (int64, error) {
	count, err := r.client.Incr(r.ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.client.Expire(r.ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// GetInt читает числовое значение (0 если ключа нет)
func (r *RedisClient) GetInt(key string) (int64, error) {
	v, err := r.client.Get(r.ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// ReplaceSet атомарно заменяет содержимое множества
func (r *RedisClient) ReplaceSet(key string, members []string) error {
	_, err := r.client.TxPipelined(r.ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(r.ctx, key)
		if len(members) > 0 {
			args := make([]interface{}, len(members))
			for i, m := range members {
				args[i] = m
			}
			pipe.SAdd(r.ctx, key, args...)
		}
		return nil
	})
	return err
}

// SMembers получает все элементы множества
func (r *RedisClient) SMembers(key string) ([]string, error) {
	return r.client.SMembers(r.ctx, key).Result()
}

// Publish публикует сообщение в канал (Pub/Sub)
func (r *RedisClient) Publish(channel string, message interface{}) error {
	data, err := encode(message)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe подписывается на канал и возвращает канал сообщений
func (r *RedisClient) Subscribe(ctx context.Context, channel string) (<-chan *redis.Message, func() error) {
	pubsub := r.client.Subscribe(ctx, channel)
	return pubsub.Channel(), pubsub.Close
}

// Ping проверяет доступность Redis
func (r *RedisClient) Ping() error {
	return r.client.Ping(r.ctx).Err()
}

// GetClient возвращает прямой доступ к redis.Client
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}
