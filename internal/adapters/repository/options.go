package repository

import "time"

type settings struct {
	capacity    int
	openTimeout time.Duration
}

func defaultSettings() settings {
	return settings{
		capacity:    1000,
		openTimeout: time.Second,
	}
}

// Option applies a configuration option to a journal store.
type Option func(*settings)

// WithCapacity bounds the number of records kept; the oldest are evicted first.
func WithCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithOpenTimeout sets how long BoltStore waits for the file lock.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}
