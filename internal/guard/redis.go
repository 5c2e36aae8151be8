package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// Redis extends Local with a redislock per operation so processes sharing
// one Redis do not run the same operation at once. Redis outages degrade to
// the local flag only.
type Redis struct {
	local  *Local
	locker *redislock.Client
	ttl    time.Duration
	prefix string
	logger logrus.FieldLogger
}

func NewRedis(client redislock.RedisClient, ttl time.Duration, prefix string, logger logrus.FieldLogger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{
		local:  NewLocal(),
		locker: redislock.New(client),
		ttl:    ttl,
		prefix: prefix,
		logger: logger,
	}
}

func (r *Redis) Acquire(ctx context.Context, name string) (func(), error) {
	releaseLocal, err := r.local.Acquire(ctx, name)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%slock:%s", r.prefix, name)
	lock, err := r.locker.Obtain(ctx, key, r.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		releaseLocal()
		return nil, fmt.Errorf("%w: %s", ErrBusy, name)
	}
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"module": "guard",
			"lock":   key,
		}).Warn("error obtaining redis lock; proceeding with local guard only: " + err.Error())
		return releaseLocal, nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(lock, key, stop, done)

	return func() {
		close(stop)
		<-done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.logger.WithFields(logrus.Fields{
				"module": "guard",
				"lock":   key,
			}).Warn("failed to release redis lock: " + err.Error())
		}
		releaseLocal()
	}, nil
}

// keepAlive extends the lock every half TTL until stop is closed, so an
// operation that outlives the TTL (a slow extraction call) keeps it held.
func (r *Redis) keepAlive(lock *redislock.Lock, key string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(context.Background(), r.ttl/2)
			err := lock.Refresh(refreshCtx, r.ttl, nil)
			cancel()
			if err != nil {
				r.logger.WithFields(logrus.Fields{
					"module": "guard",
					"lock":   key,
				}).Warn("failed to refresh redis lock: " + err.Error())
				if errors.Is(err, redislock.ErrNotObtained) {
					return
				}
			}
		}
	}
}

func (r *Redis) Active() []string {
	return r.local.Active()
}
