package trainer

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/pgn"
	"github.com/park285/opening-quiz/internal/quiz"
	"github.com/park285/opening-quiz/internal/savedquiz"
)

const openGamesPGN = "[Event \"Open games\"]\n\n1. e4 e5 (1... c5 2. Nf3) 2. Nf3 *"

func newTestService(t *testing.T, cfg Config, opts ...Option) (*Service, *savedquiz.MemoryStore) {
	t.Helper()
	store := savedquiz.NewMemoryStore()
	opts = append([]Option{WithMachineFactory(func() *quiz.Machine { return quiz.NewMachine(rand.NewPCG(7, 7)) })}, opts...)
	svc, err := NewService(store, cfg, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = svc.Close()
	})
	return svc, store
}

func TestLoadBuildsIndexAndResets(t *testing.T) {
	svc, _ := newTestService(t, Config{AutoPlayDelay: time.Hour})
	ctx := context.Background()
	id, sess, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := sess.Dispatch(ctx, quiz.PlayMove{Move: "d4"}); err != nil {
		t.Fatalf("play: %v", err)
	}
	st, err := svc.Load(ctx, id, openGamesPGN)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !st.Board.IsStart() || len(st.Stack) != 0 {
		t.Fatalf("load must reset the board")
	}
	if st.Index.Len() != 4 || st.View.PGN != openGamesPGN || st.Loaded.First().Event() != "Open games" {
		t.Fatalf("unexpected loaded state: positions=%d", st.Index.Len())
	}
}

func TestLoadRejectsBadPGNWithoutChangingState(t *testing.T) {
	svc, _ := newTestService(t, Config{AutoPlayDelay: time.Hour})
	ctx := context.Background()
	id, _, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Load(ctx, id, openGamesPGN); err != nil {
		t.Fatalf("load: %v", err)
	}
	st, err := svc.Load(ctx, id, "1. e4 e5 2. Qxf7")
	var perr *pgn.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if st.Index.Len() != 4 {
		t.Fatalf("index replaced on failed load")
	}
	if _, err := svc.Load(ctx, id, "  "); !errors.Is(err, ErrEmptyPGN) {
		t.Fatalf("empty err = %v", err)
	}
}

func TestSaveAndLoadSaved(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, Config{AutoPlayDelay: time.Hour}, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	id, sess, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	otherID, other, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create other: %v", err)
	}

	st, rec, err := svc.Save(ctx, id, openGamesPGN)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.Title != "Open games" || !rec.SaveDate.Equal(now) || rec.ID == "" {
		t.Fatalf("record = %+v", rec)
	}
	if len(st.View.Saved) != 1 {
		t.Fatalf("saved list in state = %d", len(st.View.Saved))
	}
	stored, _ := store.List(ctx)
	if len(stored) != 1 {
		t.Fatalf("store has %d", len(stored))
	}
	waitSaved(t, other, 1)

	loaded, err := svc.LoadSaved(ctx, otherID, rec.ID)
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if loaded.View.Selected != rec.ID || loaded.Index.Len() != 4 {
		t.Fatalf("load saved state: selected=%q positions=%d", loaded.View.Selected, loaded.Index.Len())
	}

	if err := svc.DeleteSaved(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	waitSaved(t, sess, 0)
	if _, err := svc.LoadSaved(ctx, id, rec.ID); !errors.Is(err, savedquiz.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

// waitSaved polls because the store watch may deliver a list after the
// synchronous broadcast.
func waitSaved(t *testing.T, sess *quiz.Session, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sess.Snapshot().View.Saved) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session saved list = %d, want %d", len(sess.Snapshot().View.Saved), n)
}

func TestListSavedNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, Config{AutoPlayDelay: time.Hour})
	ctx := context.Background()
	id, _, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, text := range []string{"[Event \"A\"]\n\n1. e4 *", "[Event \"B\"]\n\n1. d4 *"} {
		if _, _, err := svc.Save(ctx, id, text); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	list, err := svc.ListSaved(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Title != "B" || list[1].Title != "A" {
		t.Fatalf("list = %+v", list)
	}
}

func TestSessionLimitAndClose(t *testing.T) {
	svc, _ := newTestService(t, Config{MaxSessions: 1})
	ctx := context.Background()
	id, _, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.CreateSession(ctx); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("err = %v", err)
	}
	if err := svc.CloseSession(id); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := svc.Session(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestReapIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc, _ := newTestService(t, Config{IdleTTL: time.Hour}, WithClock(func() time.Time { return clock() }))
	ctx := context.Background()
	if _, _, err := svc.CreateSession(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if n := svc.ReapIdle(); n != 0 {
		t.Fatalf("reaped %d too early", n)
	}
	now = now.Add(2 * time.Hour)
	if n := svc.ReapIdle(); n != 1 || svc.SessionCount() != 0 {
		t.Fatalf("reaped %d, remaining %d", n, svc.SessionCount())
	}
}

type fakeRenderer struct{ calls int }

func (f *fakeRenderer) RenderPNG(st quiz.State) ([]byte, error) {
	f.calls++
	return []byte("png"), nil
}

func TestBoardPNG(t *testing.T) {
	r := &fakeRenderer{}
	svc, _ := newTestService(t, Config{}, WithRenderer(r))
	id, _, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	img, err := svc.BoardPNG(id)
	if err != nil || string(img) != "png" || r.calls != 1 {
		t.Fatalf("BoardPNG = %q, %v", img, err)
	}
}

func TestSaveNestedVariationsReloads(t *testing.T) {
	svc, store := newTestService(t, Config{AutoPlayDelay: time.Hour})
	ctx := context.Background()
	id, _, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const nested = "[Event \"Nested\"]\n\n1. e4 e5 (1... c5 2. Nf3 (2. Nc3 Nc6)) 2. Nf3 *"
	saved, rec, err := svc.Save(ctx, id, nested)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	stored, _ := store.List(ctx)
	if len(stored) != 1 || stored[0].PGN == "" {
		t.Fatalf("stored = %+v", stored)
	}

	loaded, err := svc.LoadSaved(ctx, id, rec.ID)
	if err != nil {
		t.Fatalf("load saved %q: %v", stored[0].PGN, err)
	}
	if !reflect.DeepEqual(loaded.Index.Snapshot(), saved.Index.Snapshot()) {
		t.Fatalf("index changed through the store:\n%v\n%v", loaded.Index.Snapshot(), saved.Index.Snapshot())
	}
}

func TestLoadSavedParseFailureKeepsSelection(t *testing.T) {
	svc, store := newTestService(t, Config{AutoPlayDelay: time.Hour})
	ctx := context.Background()
	id, sess, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	bad := domain.SavedQuiz{ID: "broken", Title: "Broken", PGN: "1. e4 e5 2. Qxf7 Kxf7 (((", SaveDate: time.Now()}
	if err := store.Append(ctx, bad); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := svc.LoadSaved(ctx, id, bad.ID); err == nil {
		t.Fatalf("expected parse error")
	}
	if got := sess.Snapshot().View.Selected; got != "" {
		t.Fatalf("selection changed to %q after a failed load", got)
	}
}

func TestLoadPublishesOneCompleteState(t *testing.T) {
	svc, _ := newTestService(t, Config{AutoPlayDelay: time.Hour})
	ctx := context.Background()
	id, sess, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		mu   sync.Mutex
		seen []quiz.State
	)
	cancel := sess.Subscribe(func(st quiz.State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})
	defer cancel()

	if _, err := svc.Load(ctx, id, openGamesPGN); err != nil {
		t.Fatalf("load: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	loads := 0
	for _, st := range seen {
		if st.Loaded == nil {
			continue
		}
		loads++
		if st.Index.Len() != 4 || st.View.PGN != openGamesPGN || len(st.Stack) != 0 {
			t.Fatalf("partial state published: positions=%d pgn=%q stack=%d", st.Index.Len(), st.View.PGN, len(st.Stack))
		}
	}
	if loads != 1 {
		t.Fatalf("load published %d states, want 1", loads)
	}
}
