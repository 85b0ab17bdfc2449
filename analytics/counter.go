package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const counterTTL = 48 * time.Hour

// Live is today's view count as seen by the redis counter.
type Live struct {
	Date     string   `json:"date"`
	Total    int64    `json:"total"`
	TopPaths []Ranked `json:"top_paths"`
}

// Counter keeps per-day view counters in redis. A Counter without a client does nothing.
type Counter struct {
	Redis *redis.Client
	Now   func() time.Time
}

func NewCounter(client *redis.Client) *Counter {
	return &Counter{Redis: client, Now: time.Now}
}

func (c *Counter) enabled() bool {
	return c != nil && c.Redis != nil
}

func (c *Counter) today() string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().UTC().Format(dayLayout)
}

func pathsKey(date string) string { return fmt.Sprintf("views:%s", date) }
func totalKey(date string) string { return fmt.Sprintf("views:%s:total", date) }

// Incr bumps today's counters for path.
func (c *Counter) Incr(ctx context.Context, path string) error {
	if !c.enabled() {
		return nil
	}
	date := c.today()
	pipe := c.Redis.TxPipeline()
	pipe.ZIncrBy(ctx, pathsKey(date), 1, path)
	pipe.Incr(ctx, totalKey(date))
	pipe.Expire(ctx, pathsKey(date), counterTTL)
	pipe.Expire(ctx, totalKey(date), counterTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Today returns today's total and the n most viewed paths.
func (c *Counter) Today(ctx context.Context, n int) (*Live, error) {
	if !c.enabled() {
		return nil, nil
	}
	if n <= 0 {
		n = defaultTopN
	}
	date := c.today()
	live := &Live{Date: date, TopPaths: []Ranked{}}

	total, err := c.Redis.Get(ctx, totalKey(date)).Int64()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	live.Total = total

	members, err := c.Redis.ZRevRangeWithScores(ctx, pathsKey(date), 0, int64(n-1)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	for _, m := range members {
		key, _ := m.Member.(string)
		live.TopPaths = append(live.TopPaths, Ranked{Key: key, Count: int(m.Score)})
	}
	return live, nil
}
