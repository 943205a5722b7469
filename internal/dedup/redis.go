package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTracker mantiene la ventana de cooldown en Redis, de modo que
// sobrevive reinicios del agente. SET NX con el cooldown como TTL da la misma
// semántica que el Tracker en memoria: el primer scan aceptado es dueño de la
// ventana y las lecturas suprimidas no la extienden; el TTL además acota el
// espacio de claves sin necesidad de desalojo explícito.
type RedisTracker struct {
	ctx      context.Context
	rdb      *redis.Client
	cooldown time.Duration
	prefix   string
}

func NewRedisTracker(addr, boothID string, cooldown time.Duration) (*RedisTracker, error) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	fmt.Println("[REDIS] connected")
	return &RedisTracker{
		ctx:      ctx,
		rdb:      rdb,
		cooldown: cooldown,
		prefix:   "booth:" + boothID + ":seen:",
	}, nil
}

// ShouldProcess intenta reclamar la ventana del identificador. Si Redis no
// responde, el scan se procesa igual: un duplicado reportado de más es
// preferible a una caseta que deja de escanear.
func (r *RedisTracker) ShouldProcess(id string, now time.Time) bool {
	key := r.prefix + id
	ok, err := r.rdb.SetNX(r.ctx, key, now.Unix(), r.cooldown).Result()
	if err != nil {
		fmt.Printf("[ERROR] redis SETNX %s: %v\n", key, err)
		return true
	}
	return ok
}

// EvictStale no hace nada: el TTL ya acota las claves.
func (r *RedisTracker) EvictStale(time.Time) int { return 0 }

func (r *RedisTracker) Close() error {
	return r.rdb.Close()
}
