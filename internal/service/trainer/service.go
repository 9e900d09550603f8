package trainer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/openingindex"
	"github.com/park285/opening-quiz/internal/quiz"
	"github.com/park285/opening-quiz/internal/savedquiz"
)

var (
	ErrSessionNotFound = errors.New("quiz session not found")
	ErrTooManySessions = errors.New("too many quiz sessions")
	ErrEmptyPGN        = errors.New("pgn text is empty")
	ErrNoRenderer      = errors.New("board renderer not configured")
)

// BoardRenderer draws a session state as an image.
type BoardRenderer interface {
	RenderPNG(state quiz.State) ([]byte, error)
}

type Config struct {
	AutoPlayDelay     time.Duration
	DefaultSquareSize int
	MaxSessions       int
	// IdleTTL closes sessions that saw no request for this long. Zero disables.
	IdleTTL time.Duration
}

type entry struct {
	session  *quiz.Session
	lastSeen time.Time
}

// Service owns the open quiz sessions and the saved-quiz store.
type Service struct {
	store    savedquiz.Store
	renderer BoardRenderer
	cfg      Config
	logger   *zap.Logger

	newMachine func() *quiz.Machine
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

type Option func(*Service)

func WithRenderer(r BoardRenderer) Option { return func(s *Service) { s.renderer = r } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMachineFactory overrides how each session's Machine is built.
func WithMachineFactory(fn func() *quiz.Machine) Option {
	return func(s *Service) { s.newMachine = fn }
}

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store savedquiz.Store, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("saved quiz store is required")
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 256
	}
	if cfg.DefaultSquareSize <= 0 {
		cfg.DefaultSquareSize = quiz.DefaultSquareSize
	}
	if cfg.AutoPlayDelay < 0 {
		cfg.AutoPlayDelay = 0
	}
	s := &Service{
		store:      store,
		cfg:        cfg,
		logger:     zap.NewNop(),
		newMachine: func() *quiz.Machine { return quiz.NewMachine(nil) },
		now:        time.Now,
		sessions:   make(map[string]*entry),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start watches the store so every open session sees saved-list changes,
// and reaps idle sessions. It returns once the watch is established.
func (s *Service) Start(ctx context.Context) error {
	updates, err := s.store.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch saved quizzes: %w", err)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.stopCh:
				return
			case list, ok := <-updates:
				if !ok {
					return
				}
				s.broadcastSaved(ctx, list)
			}
		}
	}()
	if s.cfg.IdleTTL > 0 {
		s.wg.Add(1)
		go s.reapLoop()
	}
	return nil
}

func (s *Service) reapLoop() {
	defer s.wg.Done()
	interval := s.cfg.IdleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			s.ReapIdle()
		}
	}
}

// ReapIdle closes sessions idle for longer than IdleTTL and returns how
// many were closed.
func (s *Service) ReapIdle() int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.cfg.IdleTTL)
	var stale []*quiz.Session
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.session)
			delete(s.sessions, id)
			s.logger.Info("quiz_session_expired", zap.String("session_id", id))
		}
	}
	s.mu.Unlock()
	for _, sess := range stale {
		sess.Close()
	}
	return len(stale)
}

// CreateSession opens a new session seeded with the saved list.
func (s *Service) CreateSession(ctx context.Context) (string, *quiz.Session, error) {
	saved, err := s.store.List(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("list saved quizzes: %w", err)
	}
	st := quiz.NewState()
	st.View.SquareSize = s.cfg.DefaultSquareSize
	st.View.Saved = saved

	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return "", nil, ErrTooManySessions
	}
	id := uuid.NewString()
	sess := quiz.NewSession(
		quiz.WithMachine(s.newMachine()),
		quiz.WithState(st),
		quiz.WithAutoPlayDelay(s.cfg.AutoPlayDelay),
		quiz.WithLogger(s.logger.With(zap.String("session_id", id))),
	)
	s.sessions[id] = &entry{session: sess, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.Info("quiz_session_created", zap.String("session_id", id))
	return id, sess, nil
}

// Session looks up an open session and marks it as used.
func (s *Service) Session(id string) (*quiz.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = s.now()
	return e.session, nil
}

func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.session.Close()
	s.logger.Info("quiz_session_closed", zap.String("session_id", id))
	return nil
}

// SessionCount is the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Load parses text, builds its index and resets the session onto it. On a
// parse error the session is left unchanged.
func (s *Service) Load(ctx context.Context, id, text string) (quiz.State, error) {
	return s.load(ctx, id, text, quiz.LoadQuiz{})
}

// load installs the parsed text with one LoadQuiz dispatch. act carries the
// selection, if any.
func (s *Service) load(ctx context.Context, id, text string, act quiz.LoadQuiz) (quiz.State, error) {
	sess, err := s.Session(id)
	if err != nil {
		return quiz.State{}, err
	}
	if strings.TrimSpace(text) == "" {
		return sess.Snapshot(), ErrEmptyPGN
	}
	started := s.now()
	idx, db, err := openingindex.FromPGN(text)
	if err != nil {
		s.logger.Warn("quiz_load_failed", zap.String("session_id", id), zap.Error(err))
		return sess.Snapshot(), err
	}
	s.logger.Info("quiz_loaded",
		zap.String("session_id", id),
		zap.Int("games", len(db.Games)),
		zap.Int("positions", idx.Len()),
		zap.Int("moves", idx.MoveCount()),
		zap.Duration("elapsed", s.now().Sub(started)),
	)

	act.PGN, act.Loaded, act.Index = text, db, idx
	return sess.Dispatch(ctx, act)
}

// Save loads text into the session and appends it to the saved list,
// titled by the first game's Event tag.
func (s *Service) Save(ctx context.Context, id, text string) (quiz.State, domain.SavedQuiz, error) {
	st, err := s.Load(ctx, id, text)
	if err != nil {
		return st, domain.SavedQuiz{}, err
	}
	game := st.Loaded.First()
	rec := domain.SavedQuiz{
		ID:       uuid.NewString(),
		Title:    game.Event(),
		PGN:      game.PGN(),
		SaveDate: s.now().UTC(),
	}
	if err := s.store.Append(ctx, rec); err != nil {
		return st, domain.SavedQuiz{}, fmt.Errorf("save quiz: %w", err)
	}
	s.logger.Info("quiz_saved", zap.String("session_id", id), zap.String("quiz_id", rec.ID), zap.String("title", rec.Title))
	st = s.refreshSaved(ctx, st)
	return st, rec, nil
}

// LoadSaved loads a saved quiz into the session and marks it selected.
func (s *Service) LoadSaved(ctx context.Context, id, quizID string) (quiz.State, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return quiz.State{}, err
	}
	for _, q := range list {
		if q.ID != quizID {
			continue
		}
		return s.load(ctx, id, q.PGN, quiz.LoadQuiz{Selected: quizID, Select: true})
	}
	return quiz.State{}, fmt.Errorf("%w: %s", savedquiz.ErrNotFound, quizID)
}

func (s *Service) DeleteSaved(ctx context.Context, quizID string) error {
	if err := s.store.Delete(ctx, quizID); err != nil {
		return err
	}
	s.logger.Info("quiz_deleted", zap.String("quiz_id", quizID))
	if list, err := s.store.List(ctx); err == nil {
		s.broadcastSaved(ctx, list)
	}
	return nil
}

// ListSaved returns saved quizzes newest first.
func (s *Service) ListSaved(ctx context.Context) ([]domain.SavedQuiz, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return savedquiz.ForDisplay(list), nil
}

// BoardPNG renders the session's current board.
func (s *Service) BoardPNG(id string) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrNoRenderer
	}
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderPNG(sess.Snapshot())
}

func (s *Service) refreshSaved(ctx context.Context, st quiz.State) quiz.State {
	list, err := s.store.List(ctx)
	if err != nil {
		s.logger.Warn("saved_quiz_list_failed", zap.Error(err))
		return st
	}
	s.broadcastSaved(ctx, list)
	st.View.Saved = list
	return st
}

func (s *Service) broadcastSaved(ctx context.Context, list []domain.SavedQuiz) {
	s.mu.RLock()
	targets := make([]*quiz.Session, 0, len(s.sessions))
	for _, e := range s.sessions {
		targets = append(targets, e.session)
	}
	s.mu.RUnlock()
	for _, sess := range targets {
		if _, err := sess.Dispatch(ctx, quiz.SetSaved{Saved: list}); err != nil && !errors.Is(err, quiz.ErrSessionClosed) {
			s.logger.Warn("saved_quiz_broadcast_failed", zap.Error(err))
		}
	}
}

// Close stops background work and every open session.
func (s *Service) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()
	for _, e := range sessions {
		e.session.Close()
	}
	return nil
}
