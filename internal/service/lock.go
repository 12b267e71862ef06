package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TutorLocker сериализует find-or-create класса для одного учителя.
// Вместе с уникальным индексом в classes закрывает гонку check-then-act.
type TutorLocker interface {
	Lock(ctx context.Context, tutorID model.TutorID) (unlock func(), err error)
}

// =============================================================================
// LocalLocker - блокировка в пределах процесса
// =============================================================================

type LocalLocker struct {
	mu    sync.Mutex
	locks map[model.TutorID]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[model.TutorID]chan struct{})}
}

// Lock ждёт освобождения учителя или отмены контекста
func (l *LocalLocker) Lock(ctx context.Context, tutorID model.TutorID) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[tutorID]
	if !ok {
		// буфер 1: занятый слот канала = захваченная блокировка
		ch = make(chan struct{}, 1)
		l.locks[tutorID] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("lock tutor %s: %w", tutorID, ctx.Err())
	}
}

// =============================================================================
// RedisLocker - блокировка между процессами (несколько запусков CLI/админки)
// =============================================================================

// releaseScript удаляет ключ, только если он всё ещё наш
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const redisLockRetry = 50 * time.Millisecond

type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		prefix: "tutor_matching:lock:tutor:",
	}
}

// Lock пытается занять ключ SET NX PX до успеха или отмены контекста.
// TTL защищает от вечной блокировки, если процесс упал внутри секции.
func (l *RedisLocker) Lock(ctx context.Context, tutorID model.TutorID) (func(), error) {
	key := l.prefix + tutorID.String()
	token := uuid.NewString()

	ticker := time.NewTicker(redisLockRetry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("lock tutor %s: %w", tutorID, err)
		}
		if ok {
			return func() {
				// контекст вызова мог уже закончиться, освобождаем независимо от него
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("lock tutor %s: %w", tutorID, ctx.Err())
		}
	}
}
