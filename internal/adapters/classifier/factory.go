// Package classifier builds the configured classifier backend and wraps it
// with instrumentation and caching.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/winprob/internal/adapters/classifier/cached"
	"github.com/okian/winprob/internal/adapters/classifier/remote"
	domain "github.com/okian/winprob/internal/domain/classifier"
	"github.com/okian/winprob/pkg/logger"
)

// Backend names.
const (
	BackendLogistic = "logistic"
	BackendRemote   = "remote"
)

// Settings selects and tunes a backend.
type Settings struct {
	Backend   string
	ModelPath string
	Remote    remote.Config
	CacheTTL  time.Duration
	Logger    logger.Logger
}

// Built is a ready classifier plus the handles callers may want to inspect.
type Built struct {
	Classifier domain.Classifier
	Backend    string
	Cache      *cached.Classifier // nil when caching is disabled
	closers    []func() error
}

// Close releases backend resources.
func (b *Built) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build constructs the backend named by s.Backend, instrumented and, when
// CacheTTL is positive, cached. Cache hits do not reach the latency histogram.
func Build(ctx context.Context, s Settings) (*Built, error) {
	log := s.Logger
	if log == nil {
		log = logger.Nop()
	}

	b := &Built{Backend: s.Backend}
	var base domain.Classifier

	switch s.Backend {
	case BackendLogistic:
		m, err := domain.LoadLogistic(s.ModelPath)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "logistic model loaded",
			logger.String("path", s.ModelPath),
			logger.String("name", m.Name()),
			logger.String("version", m.Version()),
		)
		base = m
	case BackendRemote:
		c, err := remote.New(s.Remote, remote.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := c.HealthCheck(ctx); err != nil {
			log.Warn(ctx, "model sidecar not healthy at startup", logger.String("url", s.Remote.BaseURL), logger.Error(err))
		}
		b.closers = append(b.closers, c.Close)
		base = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}

	b.Classifier = Instrument(base, s.Backend)
	if s.CacheTTL > 0 {
		b.Cache = cached.New(b.Classifier, s.CacheTTL)
		b.Classifier = b.Cache
	}
	return b, nil
}
