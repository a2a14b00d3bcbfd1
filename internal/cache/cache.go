// Package cache 提供基于 Redis 的课表缓存
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/paiban/kebiao/internal/config"
	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
)

const keyPrefix = "kebiao"

// DefaultTTL 默认缓存时间
const DefaultTTL = 30 * time.Minute

// NewRedis 创建并测试 Redis 连接
func NewRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr()).Msg("Redis 连接成功")
	return client, nil
}

// ResultCache 缓存课表与生成结果，client 为空时所有读取均未命中
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache 创建结果缓存
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{client: client, ttl: ttl}
}

// Enabled 是否连接了 Redis
func (c *ResultCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get 读取并反序列化缓存值
func (c *ResultCache) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.Enabled() {
		return apperrors.ErrCacheMiss
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrCacheMiss
		}
		return fmt.Errorf("读取缓存 %s 失败: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("解析缓存 %s 失败: %w", key, err)
	}
	return nil
}

// Set 序列化并写入缓存
func (c *ResultCache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化缓存 %s 失败: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("写入缓存 %s 失败: %w", key, err)
	}
	return nil
}

// Delete 删除缓存键
func (c *ResultCache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("删除缓存失败: %w", err)
	}
	return nil
}

// DeleteByPattern 删除匹配模式的全部缓存
func (c *ResultCache) DeleteByPattern(ctx context.Context, pattern string) error {
	if !c.Enabled() {
		return nil
	}

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("删除缓存 %s 失败: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("扫描缓存 %s 失败: %w", pattern, err)
	}
	return nil
}

// Close 关闭连接
func (c *ResultCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// TimetableKey 单个课表的缓存键
func TimetableKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:timetable:%s", keyPrefix, id)
}

// GenerationKey 某学期（院系）最近一次生成结果的缓存键
func GenerationKey(semester int, departmentID string) string {
	if departmentID == "" {
		departmentID = "all"
	}
	return fmt.Sprintf("%s:generation:%d:%s", keyPrefix, semester, departmentID)
}

// SemesterPattern 某学期全部生成结果的匹配模式
func SemesterPattern(semester int) string {
	return fmt.Sprintf("%s:generation:%d:*", keyPrefix, semester)
}
