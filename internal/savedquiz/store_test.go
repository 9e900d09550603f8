package savedquiz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/park285/opening-quiz/internal/domain"
)

func sampleQuiz(id, title string, at time.Time) domain.SavedQuiz {
	return domain.SavedQuiz{ID: id, Title: title, PGN: "[Event \"" + title + "\"]\n\n1. e4 e5 (1... c5) 2. Nf3 *", SaveDate: at}
}

func TestDecodeAssignsLegacyIDs(t *testing.T) {
	list, err := Decode(`[{"title":"old","pgn":"1. e4 *","saveDate":"2023-01-02T03:04:05.000Z"}]`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || !strings.HasPrefix(list[0].ID, "legacy-") {
		t.Fatalf("unexpected list %+v", list)
	}
	again, _ := Decode(`[{"title":"old","pgn":"1. e4 *","saveDate":"2023-01-02T03:04:05.000Z"}]`)
	if again[0].ID != list[0].ID {
		t.Fatalf("legacy id not stable")
	}
	empty, err := Decode("")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty decode = %v, %v", empty, err)
	}
	if _, err := Decode("{"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestForDisplayReverses(t *testing.T) {
	now := time.Now()
	list := []domain.SavedQuiz{sampleQuiz("a", "A", now), sampleQuiz("b", "B", now), sampleQuiz("c", "C", now)}
	got := ForDisplay(list)
	if got[0].ID != "c" || got[2].ID != "a" || list[0].ID != "a" {
		t.Fatalf("ForDisplay = %v", got)
	}
}

func TestLabel(t *testing.T) {
	q := sampleQuiz("a", "Open games", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	got := Label(q, time.UTC)
	want := "2024-05-06 07:08:09 - Open games - 4 moves - 1. e4 e5 (1... c5) 2. Nf3 *"
	if got != want {
		t.Fatalf("label = %q, want %q", got, want)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemoryStore()
	exerciseStore(t, ctx, store)
}

func exerciseStore(t *testing.T, ctx context.Context, store Store) {
	t.Helper()
	updates, err := store.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Append(ctx, sampleQuiz("q1", "First", at)); err != nil {
		t.Fatalf("append: %v", err)
	}
	expectUpdate(t, updates, 1)
	if err := store.Append(ctx, sampleQuiz("q2", "Second", at.Add(time.Minute))); err != nil {
		t.Fatalf("append: %v", err)
	}
	expectUpdate(t, updates, 2)

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "q1" || list[1].ID != "q2" {
		t.Fatalf("list = %+v", list)
	}
	if !list[1].SaveDate.Equal(at.Add(time.Minute)) {
		t.Fatalf("save date = %v", list[1].SaveDate)
	}

	if err := store.Delete(ctx, "q1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	expectUpdate(t, updates, 1)
	if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete missing err = %v", err)
	}
}

func expectUpdate(t *testing.T, updates <-chan []domain.SavedQuiz, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case list, ok := <-updates:
			if !ok {
				t.Fatalf("watch channel closed")
			}
			if len(list) == n {
				return
			}
		case <-deadline:
			t.Fatalf("no update with %d quizzes", n)
		}
	}
}
