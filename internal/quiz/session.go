package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultAutoPlayDelay is the pause before the automatic reply to a player move.
const DefaultAutoPlayDelay = 500 * time.Millisecond

var ErrSessionClosed = errors.New("quiz session closed")

type request struct {
	action Action
	player bool
	reply  chan result
}

type result struct {
	state State
	err   error
}

// Session owns one State and applies actions to it one at a time on a
// dedicated goroutine. Snapshots may be read concurrently.
type Session struct {
	machine *Machine
	delay   time.Duration
	logger  *zap.Logger

	requests chan request
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.RWMutex
	state   State
	subs    map[int]func(State)
	nextSub int

	timersM sync.Mutex
	timers  map[*time.Timer]struct{}
}

type Option func(*Session)

func WithMachine(m *Machine) Option {
	return func(s *Session) { s.machine = m }
}

// WithAutoPlayDelay sets the pause before the automatic reply. Negative
// values are treated as zero.
func WithAutoPlayDelay(d time.Duration) Option {
	return func(s *Session) {
		if d < 0 {
			d = 0
		}
		s.delay = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithState(st State) Option {
	return func(s *Session) { s.state = st }
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		delay:    DefaultAutoPlayDelay,
		logger:   zap.NewNop(),
		requests: make(chan request, 64),
		stopCh:   make(chan struct{}),
		state:    NewState(),
		subs:     make(map[int]func(State)),
		timers:   make(map[*time.Timer]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.machine == nil {
		s.machine = NewMachine(nil)
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case req := <-s.requests:
			req.reply <- s.apply(req)
		}
	}
}

func (s *Session) apply(req request) result {
	cur := s.Snapshot()
	next, err := s.machine.Reduce(cur, req.action)
	if err != nil {
		s.logger.Debug("quiz_action_rejected", zap.String("action", req.action.Name()), zap.Error(err))
		return result{state: cur, err: err}
	}

	s.mu.Lock()
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}

	if req.player {
		s.scheduleFollowUp(cur, next)
	}
	return result{state: next}
}

// scheduleFollowUp queues the automatic reply to a move the player made
// from a position where it was their turn. A correct move jumps when
// auto-jump is on; otherwise the opponent replies from the index.
func (s *Session) scheduleFollowUp(before, after State) {
	if before.Board.Turn() != before.PlayerSide() {
		return
	}
	var follow Action = PlayRandomMove{}
	if before.AutoJump && len(after.Stack) > 0 {
		played := after.Stack[len(after.Stack)-1].Move.SAN
		if before.Index.Contains(before.Board.Fingerprint(), played) {
			follow = JumpToRandomPosition{}
		}
	}

	var t *time.Timer
	s.timersM.Lock()
	t = time.AfterFunc(s.delay, func() {
		s.timersM.Lock()
		delete(s.timers, t)
		s.timersM.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.Dispatch(ctx, follow); err != nil && !errors.Is(err, ErrSessionClosed) {
			s.logger.Warn("quiz_follow_up_failed", zap.String("action", follow.Name()), zap.Error(err))
		}
	})
	s.timers[t] = struct{}{}
	s.timersM.Unlock()
}

// Dispatch applies a and returns the resulting state.
func (s *Session) Dispatch(ctx context.Context, a Action) (State, error) {
	return s.send(ctx, request{action: a})
}

// PlayerMove plays a move on behalf of the user. If it was the player's
// turn, the automatic reply is dispatched after the configured delay.
func (s *Session) PlayerMove(ctx context.Context, move string) (State, error) {
	return s.send(ctx, request{action: PlayMove{Move: move}, player: true})
}

func (s *Session) send(ctx context.Context, req request) (State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req.reply = make(chan result, 1)
	select {
	case <-s.stopCh:
		return State{}, ErrSessionClosed
	default:
	}
	select {
	case s.requests <- req:
	case <-s.stopCh:
		return State{}, ErrSessionClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.state, r.err
	case <-s.stopCh:
		return State{}, ErrSessionClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to receive every new state. fn runs on the
// dispatch goroutine and must not block or dispatch synchronously.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close stops the dispatch goroutine and any pending follow-ups.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.timersM.Lock()
		for t := range s.timers {
			t.Stop()
		}
		s.timers = map[*time.Timer]struct{}{}
		s.timersM.Unlock()
	})
	s.wg.Wait()
}
