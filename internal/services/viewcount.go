package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/darisni/darisni-backend/internal/data/repos/videos"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
	"github.com/darisni/darisni-backend/internal/utils"
)

const viewKeyPrefix = "views:"

// ViewCounter records playback starts. Record is fire-and-forget: a lost
// increment is acceptable, a slow or failed counter must never delay the
// byte stream.
type ViewCounter interface {
	Record(videoID uuid.UUID)
	// Flush drains buffered counts into the database.
	Flush(ctx context.Context) error
	Close()
}

// redisViewCounter buffers increments in Redis and folds them into the
// video_asset rows on a timer, so a popular video costs one UPDATE per
// flush interval instead of one per viewer.
type redisViewCounter struct {
	log       *logger.Logger
	rdb       *redis.Client
	videoRepo videos.VideoAssetRepo

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewRedisViewCounter(baseLog *logger.Logger, rdb *redis.Client, videoRepo videos.VideoAssetRepo) ViewCounter {
	counterLog := baseLog.With("service", "ViewCounter")
	c := &redisViewCounter{
		log:       counterLog,
		rdb:       rdb,
		videoRepo: videoRepo,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	interval := time.Duration(utils.GetEnvAsInt("VIEW_FLUSH_SECONDS", 30, counterLog)) * time.Second
	go c.run(interval)
	return c
}

func (c *redisViewCounter) Record(videoID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.rdb.Incr(ctx, viewKeyPrefix+videoID.String()).Err(); err != nil {
			c.log.Warn("view increment dropped", "error", err, "video_id", videoID)
		}
	}()
}

func (c *redisViewCounter) run(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := c.Flush(ctx); err != nil {
				c.log.Error("view count flush failed", "error", err)
			}
			cancel()
		case <-c.stop:
			// Final drain on shutdown.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := c.Flush(ctx); err != nil {
				c.log.Error("final view count flush failed", "error", err)
			}
			cancel()
			return
		}
	}
}

func (c *redisViewCounter) Flush(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, viewKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		raw, err := c.rdb.GetDel(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return err
		}
		delta, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || delta <= 0 {
			c.log.Warn("discarding malformed view counter", "key", key, "value", raw)
			continue
		}
		videoID, err := uuid.Parse(key[len(viewKeyPrefix):])
		if err != nil {
			c.log.Warn("discarding view counter with bad key", "key", key)
			continue
		}

		dbc := dbctx.Context{Ctx: ctx}
		if err := c.videoRepo.IncrementViewCount(dbc, videoID, delta); err != nil {
			// Put the count back so the next flush retries it.
			if rErr := c.rdb.IncrBy(ctx, key, delta).Err(); rErr != nil {
				c.log.Error("lost view counts", "error", rErr, "video_id", videoID, "delta", delta)
			}
			return err
		}
	}
	return iter.Err()
}

func (c *redisViewCounter) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

// directViewCounter writes straight to the database. Used when REDIS_ADDR
// is not configured.
type directViewCounter struct {
	log       *logger.Logger
	videoRepo videos.VideoAssetRepo
}

func NewDirectViewCounter(baseLog *logger.Logger, videoRepo videos.VideoAssetRepo) ViewCounter {
	return &directViewCounter{
		log:       baseLog.With("service", "ViewCounter"),
		videoRepo: videoRepo,
	}
}

func (c *directViewCounter) Record(videoID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dbc := dbctx.Context{Ctx: ctx}
		if err := c.videoRepo.IncrementViewCount(dbc, videoID, 1); err != nil {
			c.log.Warn("view increment dropped", "error", err, "video_id", videoID)
		}
	}()
}

func (c *directViewCounter) Flush(ctx context.Context) error { return nil }
func (c *directViewCounter) Close()                          {}
