package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrDrawInProgress = errors.New("a draw is already in progress")

// Reveal timings of the presentation: how long the drawn club stays on
// screen, then how long it takes to leave
const (
	DefaultRevealHold = 2 * time.Second
	DefaultRevealExit = 800 * time.Millisecond
)

type RevealFunc func(ctx context.Context, assignment Assignment)

// DrawSession is one view's draw control. The assignment is committed before
// Draw returns, the reveal that follows only blocks further draws from this
// session.
type DrawSession struct {
	draws    *DrawService
	hold     time.Duration
	exit     time.Duration
	onReveal RevealFunc

	busy atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDrawSession(draws *DrawService, hold, exit time.Duration, onReveal RevealFunc) *DrawSession {
	return &DrawSession{draws: draws, hold: hold, exit: exit, onReveal: onReveal}
}

func (s *DrawSession) Busy() bool {
	return s.busy.Load()
}

func (s *DrawSession) Draw(ctx context.Context, clubID string) (*Assignment, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrDrawInProgress
	}

	assignment, err := s.draws.Assign(ctx, clubID)
	if err != nil {
		s.busy.Store(false)
		return nil, err
	}

	// The reveal outlives the request that started it
	revealCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.reveal(revealCtx, cancel, *assignment)
	return assignment, nil
}

func (s *DrawSession) reveal(ctx context.Context, cancel context.CancelFunc, assignment Assignment) {
	defer s.wg.Done()
	defer cancel()
	defer s.busy.Store(false)

	timer := time.NewTimer(s.hold + s.exit)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if s.onReveal != nil {
		s.onReveal(ctx, assignment)
	}
}

// Cancel stops a running reveal. The committed assignment stays.
func (s *DrawSession) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close cancels a running reveal and waits for it to exit
func (s *DrawSession) Close() {
	s.Cancel()
	s.wg.Wait()
}
