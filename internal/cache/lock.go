package cache

import (
	"context"
	"time"

	"github.com/yieldtree/engine/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 仅在令牌匹配时删除，避免释放他人持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CycleLock 周期级分布式锁（SET NX + TTL）
type CycleLock struct {
	client *redis.Client
}

// NewCycleLock 基于全局 Redis 客户端创建周期锁；Redis 未启用时加锁总是成功
func NewCycleLock() *CycleLock {
	return &CycleLock{client: Client()}
}

// TryLock 尝试获取周期锁
func (l *CycleLock) TryLock(ctx context.Context, cycle string, ttl time.Duration) (func(), bool, error) {
	if l == nil || l.client == nil {
		return func() {}, true, nil
	}
	key := CycleLockKey(cycle)
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}
	unlock := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			logger.Warnw("cycle_lock_release_failed", "key", key, "error", err)
		}
	}
	return unlock, true, nil
}

// CycleLockKey 周期锁键名
func CycleLockKey(cycle string) string {
	return buildKey("cycle:lock:" + cycle)
}
