// Package cached memoizes classifier results for identical feature vectors.
package cached

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/okian/winprob/internal/domain/classifier"
	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/pkg/metrics"
)

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
}

// Classifier wraps another classifier with a TTL cache. Errors are never
// cached.
type Classifier struct {
	next   classifier.Classifier
	cache  *cache.Cache
	ttl    time.Duration
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New wraps next with a cache holding results for ttl.
func New(next classifier.Classifier, ttl time.Duration) *Classifier {
	return &Classifier{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// PredictProbability implements classifier.Classifier.
func (c *Classifier) PredictProbability(ctx context.Context, f match.Features) ([]float64, error) {
	key := Key(f)
	if v, found := c.cache.Get(key); found {
		if probs, ok := v.([]float64); ok {
			c.hits.Add(1)
			metrics.RecordCacheHit()
			return clone(probs), nil
		}
	}

	c.misses.Add(1)
	metrics.RecordCacheMiss()

	probs, err := c.next.PredictProbability(ctx, f)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, clone(probs), c.ttl)
	return probs, nil
}

// HealthCheck delegates to the wrapped classifier.
func (c *Classifier) HealthCheck(ctx context.Context) error {
	return classifier.Check(ctx, c.next)
}

// Unwrap returns the wrapped classifier.
func (c *Classifier) Unwrap() classifier.Classifier { return c.next }

// Stats returns hit and miss counters.
func (c *Classifier) Stats() Stats {
	s := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Items:  c.cache.ItemCount(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Flush drops every cached entry.
func (c *Classifier) Flush() {
	c.cache.Flush()
}

// Key renders f canonically. Floats use the shortest exact representation
// so distinct rates never collide.
func Key(f match.Features) string {
	var b strings.Builder
	b.Grow(128)
	for _, s := range []string{f.BattingTeam, f.BowlingTeam, f.City} {
		b.WriteString(strconv.Quote(s))
		b.WriteByte('|')
	}
	for _, n := range []int{f.RunsLeft, f.BallsLeft, f.Wickets, f.TotalRunsX} {
		b.WriteString(strconv.Itoa(n))
		b.WriteByte('|')
	}
	b.WriteString(strconv.FormatFloat(f.CurrentRate, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(f.RequiredRunRate, 'g', -1, 64))
	return b.String()
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
