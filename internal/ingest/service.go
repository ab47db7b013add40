package ingest

// service.go tracks asynchronous parse operations. Callers start a parse,
// get an ID back immediately, and follow progress through a subscription
// channel while the work runs in the background. The service is what the
// upload front end talks to; the synchronous entry points in
// orchestrator.go remain available for direct library use.

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/WiesHerd/survey-ingest/internal/config"
	"github.com/WiesHerd/survey-ingest/internal/logging"
	"github.com/google/uuid"
)

// DefaultParseTimeout is the maximum duration for a single parse
// operation when no timeout is configured.
const DefaultParseTimeout = 10 * time.Minute

// cleanupDelay is how long a finished parse stays queryable before it is
// dropped from tracking.
const cleanupDelay = 5 * time.Minute

// Service runs parses in the background with bounded concurrency.
type Service struct {
	limiter *ParseLimiter
	timeout time.Duration

	mu     sync.RWMutex
	parses map[string]*activeParse
}

type activeParse struct {
	ID       string
	FileName string
	Cancel   context.CancelFunc

	ListenerMu sync.Mutex
	Listeners  []chan ProgressEvent
	last       ProgressEvent
	closed     bool

	Done   chan struct{}
	Result *ParseResult
	Err    error
}

// NewService creates a service allowing at most maxConcurrent simultaneous
// parses; callers beyond that wait up to maxWait for a slot.
func NewService(maxConcurrent int, maxWait time.Duration) *Service {
	return &Service{
		limiter: NewParseLimiter(maxConcurrent, maxWait),
		timeout: DefaultParseTimeout,
		parses:  make(map[string]*activeParse),
	}
}

// NewServiceFromConfig builds a service from the loaded configuration:
// concurrency limit, slot wait time and per-parse timeout all come from the
// SERVICE_* settings.
func NewServiceFromConfig(cfg *config.Config) *Service {
	return &Service{
		limiter: NewParseLimiter(cfg.Service.MaxConcurrent, cfg.Service.MaxWaitTime),
		timeout: cfg.Service.Timeout,
		parses:  make(map[string]*activeParse),
	}
}

// StartParse begins an asynchronous parse of r and returns its ID
// immediately. Use SubscribeProgress for updates and Result for the
// outcome. Returns ErrTooManyParses when no slot frees up in time.
func (s *Service) StartParse(ctx context.Context, fileName string, r io.Reader, totalBytes int64, opts ParseOptions) (string, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	parseID := uuid.New().String()
	parseCtx, cancel := context.WithTimeout(context.Background(), s.timeout)

	p := &activeParse{
		ID:       parseID,
		FileName: fileName,
		Cancel:   cancel,
		Done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.parses[parseID] = p
	s.mu.Unlock()

	go s.run(parseCtx, p, r, totalBytes, opts)

	return parseID, nil
}

func (s *Service) run(ctx context.Context, p *activeParse, r io.Reader, totalBytes int64, opts ParseOptions) {
	start := time.Now()
	logger := logging.WithParse(p.ID).With("file", p.FileName)

	defer func() {
		p.closeListeners()
		close(p.Done)
		p.Cancel()
		s.limiter.Release()
		s.cleanup(p.ID, cleanupDelay)
	}()

	callerProgress := opts.OnProgress
	opts.OnProgress = func(ev ProgressEvent) {
		p.notifyProgress(ev)
		if callerProgress != nil {
			callerProgress(ev)
		}
	}

	res, err := ParseSmart(ctx, r, totalBytes, opts)
	p.Result, p.Err = res, err

	if err != nil {
		logger.Error("parse failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("parse complete",
		"rows", len(res.Rows),
		"encoding_issues", res.EncodingIssues.HasIssues,
		"duration", time.Since(start),
	)
}

// SubscribeProgress returns a channel that receives progress updates. The
// channel is closed when the parse completes; subscribing after completion
// yields an already-closed channel.
func (s *Service) SubscribeProgress(parseID string) (<-chan ProgressEvent, error) {
	p, err := s.lookup(parseID)
	if err != nil {
		return nil, err
	}

	ch := make(chan ProgressEvent, 10)

	p.ListenerMu.Lock()
	if p.closed {
		close(ch)
	} else {
		p.Listeners = append(p.Listeners, ch)
		// Send the latest event immediately so late subscribers catch up.
		select {
		case ch <- p.last:
		default:
		}
	}
	p.ListenerMu.Unlock()

	return ch, nil
}

// CancelParse cancels an in-progress parse. The parse finishes with a
// Cancelled error and returns no rows.
func (s *Service) CancelParse(parseID string) error {
	p, err := s.lookup(parseID)
	if err != nil {
		return err
	}
	p.Cancel()
	return nil
}

// Result blocks until the parse completes and returns its outcome.
func (s *Service) Result(parseID string) (*ParseResult, error) {
	p, err := s.lookup(parseID)
	if err != nil {
		return nil, err
	}
	<-p.Done
	return p.Result, p.Err
}

// Progress returns the most recent progress event without blocking.
func (s *Service) Progress(parseID string) (ProgressEvent, error) {
	p, err := s.lookup(parseID)
	if err != nil {
		return ProgressEvent{}, err
	}
	p.ListenerMu.Lock()
	defer p.ListenerMu.Unlock()
	return p.last, nil
}

// ActiveParses returns the number of parses currently running.
func (s *Service) ActiveParses() int {
	return s.limiter.ActiveCount()
}

// WaitForDrain blocks until all active parses complete or ctx is
// cancelled. Used for graceful shutdown.
func (s *Service) WaitForDrain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) lookup(parseID string) (*activeParse, error) {
	s.mu.RLock()
	p, ok := s.parses[parseID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("parse not found: %s", parseID)
	}
	return p, nil
}

// notifyProgress sends a progress update to all listeners. Slow listeners
// skip updates rather than blocking the parse.
func (p *activeParse) notifyProgress(ev ProgressEvent) {
	p.ListenerMu.Lock()
	defer p.ListenerMu.Unlock()

	p.last = ev
	for _, ch := range p.Listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// closeListeners closes all listener channels.
func (p *activeParse) closeListeners() {
	p.ListenerMu.Lock()
	defer p.ListenerMu.Unlock()

	for _, ch := range p.Listeners {
		close(ch)
	}
	p.Listeners = nil
	p.closed = true
}

// cleanup removes the parse from tracking after a delay.
func (s *Service) cleanup(parseID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.parses, parseID)
		s.mu.Unlock()
	})
}
