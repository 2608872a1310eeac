package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"SpikeWatch/internal/domain/models"
	drepo "SpikeWatch/internal/domain/repository"
	"SpikeWatch/internal/engine"
	applogger "SpikeWatch/pkg/logger"
)

// BarRecorder appends live bars for later replay. Optional.
type BarRecorder interface {
	StoreBatch(ctx context.Context, bars []*models.MinuteBar) error
}

const (
	recordFlushSize     = 500
	recordFlushInterval = 30 * time.Second
)

// Scanner runs the live detection loop: it owns the market stream and the
// stage engine, and hands emitted alerts to the AlertEmitter. The engine
// is driven from a single goroutine; symbol state needs no locking.
type Scanner struct {
	stream   drepo.MarketStream
	eng      *engine.Engine
	emitter  *AlertEmitter
	recorder BarRecorder
	log      *applogger.Logger

	// Sessions to scan. Empty set means every open session.
	sessions map[models.Session]bool

	mu      sync.Mutex
	pending []*models.MinuteBar
	done    chan struct{}

	closedLogged bool
}

// NewScanner wires the live loop. recorder may be nil.
func NewScanner(
	stream drepo.MarketStream,
	eng *engine.Engine,
	emitter *AlertEmitter,
	recorder BarRecorder,
	log *applogger.Logger,
	sessions []string,
) *Scanner {
	s := &Scanner{
		stream:   stream,
		eng:      eng,
		emitter:  emitter,
		recorder: recorder,
		log:      log,
		done:     make(chan struct{}),
	}
	if len(sessions) > 0 {
		s.sessions = make(map[models.Session]bool, len(sessions))
		for _, name := range sessions {
			s.sessions[models.Session(strings.ToUpper(name))] = true
		}
	}
	return s
}

// IsConnected reports the stream state, for the status endpoint.
func (s *Scanner) IsConnected() bool {
	return s.stream.IsConnected()
}

// Start connects, subscribes, and launches the consume loop.
func (s *Scanner) Start(ctx context.Context) error {
	if err := s.stream.Connect(ctx); err != nil {
		return err
	}
	if err := s.stream.Subscribe(ctx); err != nil {
		return err
	}
	bars, quotes, errs := s.stream.Read(ctx)
	go s.consume(ctx, bars, quotes, errs)
	if s.recorder != nil {
		go s.flushLoop(ctx)
	}
	return nil
}

func (s *Scanner) consume(ctx context.Context, bars <-chan *models.MinuteBar, quotes <-chan *models.Quote, errs <-chan error) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if err != nil {
				if s.log != nil {
					s.log.Warn("stream error, reconnecting", applogger.Error(err))
				}
				if rerr := s.stream.Reconnect(ctx); rerr != nil {
					if s.log != nil {
						s.log.Error("reconnect failed", applogger.Error(rerr))
					}
					// Fresh channels arrive only from a successful
					// Reconnect + Read; back off and retry via errs.
					select {
					case <-ctx.Done():
						return
					case <-time.After(5 * time.Second):
					}
					continue
				}
				nb, nq, ne := s.stream.Read(ctx)
				bars, quotes, errs = nb, nq, ne
			}
		case q := <-quotes:
			if q != nil {
				s.eng.OnQuote(q)
			}
		case bar := <-bars:
			if bar == nil {
				continue
			}
			s.handleBar(ctx, bar)
		}
	}
}

func (s *Scanner) handleBar(ctx context.Context, bar *models.MinuteBar) {
	sess := engine.ResolveSession(bar.Timestamp)
	if sess == models.SessionClosed {
		if !s.closedLogged && s.log != nil {
			s.log.Debug("market closed, dropping bars",
				applogger.String("next_open", engine.NextSessionOpen(bar.Timestamp).Format(time.RFC3339)))
		}
		s.closedLogged = true
		return
	}
	s.closedLogged = false
	if s.sessions != nil && !s.sessions[sess] {
		return
	}
	if s.recorder != nil {
		s.mu.Lock()
		s.pending = append(s.pending, bar)
		flush := len(s.pending) >= recordFlushSize
		s.mu.Unlock()
		if flush {
			s.flush(ctx)
		}
	}
	if alert := s.eng.OnBar(bar); alert != nil {
		s.emitter.Emit(ctx, alert)
	}
}

func (s *Scanner) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(recordFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.flush(context.Background())
			return
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

func (s *Scanner) flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return
	}
	if err := s.recorder.StoreBatch(ctx, batch); err != nil && s.log != nil {
		s.log.Error("bar recording failed",
			applogger.Int("bars", len(batch)),
			applogger.Error(err))
	}
}

// Stop closes the stream and waits briefly for the loop to drain.
func (s *Scanner) Stop() error {
	err := s.stream.Close()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
	}
	return err
}
