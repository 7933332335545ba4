package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dagucloud/rollbuf/internal/config"
	"github.com/dagucloud/rollbuf/internal/logger"
	"github.com/dagucloud/rollbuf/internal/logger/tag"
)

const defaultMonitoringInterval = 5 * time.Second

type Service struct {
	config    *config.Config
	store     Store
	collector Collector

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCollector replaces the gopsutil collector.
func WithCollector(c Collector) ServiceOption {
	return func(s *Service) {
		s.collector = c
	}
}

// WithStore replaces the in-memory store.
func WithStore(store Store) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

func NewService(cfg *config.Config, opts ...ServiceOption) *Service {
	if cfg.Monitoring.Interval <= 0 {
		cfg.Monitoring.Interval = defaultMonitoringInterval
	}
	s := &Service{
		config: cfg,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewMemoryStore(cfg.Monitoring.Retention, cfg.Monitoring.Interval)
	}
	if s.collector == nil {
		s.collector = NewHostCollector(cfg.Monitoring.DiskPath, cfg.Monitoring.Metrics)
	}
	return s
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.loop(ctx)

	logger.Info(ctx, "Resource monitoring service started",
		tag.Interval(s.config.Monitoring.Interval),
		tag.Retention(s.config.Monitoring.Retention),
	)
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.cancel()
	<-s.done
	s.running = false
	s.done = make(chan struct{})

	logger.Info(ctx, "Resource monitoring service stopped")
	return nil
}

func (s *Service) GetHistory(duration time.Duration) *ResourceHistory {
	return s.store.GetHistory(duration)
}

// SetRetention changes how much history is kept.
func (s *Service) SetRetention(ctx context.Context, retention time.Duration) error {
	if err := s.store.SetRetention(retention); err != nil {
		return err
	}
	s.mu.Lock()
	s.config.Monitoring.Retention = retention
	s.mu.Unlock()

	logger.Info(ctx, "Resource retention changed", tag.Retention(retention))
	return nil
}

// Collect takes one sample and stores it.
func (s *Service) Collect(ctx context.Context) error {
	sample, err := s.collector.Collect(ctx)
	if err != nil {
		return err
	}
	s.store.Add(sample)
	return nil
}

// Run collects a sample right away and then one per interval until limit
// samples were taken or ctx is done. A limit of zero never stops on its own.
// Unlike the background loop, Run gives up on the first collection error.
func (s *Service) Run(ctx context.Context, limit int) (int, error) {
	ticker := time.NewTicker(s.config.Monitoring.Interval)
	defer ticker.Stop()

	taken := 0
	for {
		if err := s.Collect(ctx); err != nil {
			return taken, fmt.Errorf("failed to collect sample %d: %w", taken+1, err)
		}
		taken++
		logger.Debug(ctx, "Collected resource sample", tag.Count(taken))

		if limit > 0 && taken >= limit {
			return taken, nil
		}
		select {
		case <-ctx.Done():
			return taken, nil
		case <-ticker.C:
		}
	}
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Monitoring.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Collect(ctx); err != nil {
				logger.Error(ctx, "Failed to collect resource usage", tag.Error(err))
			}
		}
	}
}
