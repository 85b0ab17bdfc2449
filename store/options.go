package store

import "time"

// Option tunes a Store built by New.
type Option func(*storeConfig)

type storeConfig struct {
	dataKey string
	clock   func() time.Time
}

// WithDataKey seals sensitive columns with a key derived from key.
func WithDataKey(key string) Option {
	return func(c *storeConfig) { c.dataKey = key }
}

// WithClock replaces time.Now, mostly for tests that need fixed publish dates.
func WithClock(now func() time.Time) Option {
	return func(c *storeConfig) { c.clock = now }
}
