package worker

import (
	"time"

	"github.com/giralibros/giralibros/broker"
	"github.com/giralibros/giralibros/observability"
)

type SweeperConfig struct {
	Broker   *broker.Broker
	Interval time.Duration
	MaxAge   time.Duration
}

// Sweeper periodically deletes expired pending uploads. It is a convenience
// around broker.Sweep for deployments without an external scheduler; the
// admin cleanup endpoint performs the same operation on demand.
type Sweeper struct {
	config *SweeperConfig
	done   chan struct{}
}

func NewSweeper(config *SweeperConfig) *Sweeper {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.MaxAge == 0 {
		config.MaxAge = 24 * time.Hour
	}
	return &Sweeper{
		config: config,
		done:   make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.run()
	observability.Log().Infow("pending upload sweeper started",
		"interval", s.config.Interval, "max_age", s.config.MaxAge)
}

func (s *Sweeper) Stop() {
	close(s.done)
	observability.Log().Info("pending upload sweeper stopped")
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			count, err := s.config.Broker.Sweep(s.config.MaxAge)
			if err != nil {
				observability.Log().Errorw("pending upload sweep failed", "error", err)
				continue
			}
			if count > 0 {
				observability.Log().Infow("swept expired pending uploads", "removed", count)
			}
		}
	}
}
