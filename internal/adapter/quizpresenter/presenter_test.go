package quizpresenter

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/openingindex"
	"github.com/park285/opening-quiz/internal/quiz"
	"github.com/park285/opening-quiz/pkg/quizdto"
)

func played(t *testing.T, moves ...string) quiz.State {
	t.Helper()
	idx, db, err := openingindex.FromPGN("1. e4 e5 (1... c5 2. Nf3) 2. Nf3 *")
	if err != nil {
		t.Fatalf("FromPGN: %v", err)
	}
	s := quiz.NewState()
	s.Index = idx
	s.Loaded = db
	m := quiz.NewMachine(rand.NewPCG(1, 1))
	for _, mv := range moves {
		if s, err = m.Reduce(s, quiz.PlayMove{Move: mv}); err != nil {
			t.Fatalf("play %s: %v", mv, err)
		}
	}
	return s
}

func TestStateSuccessFeedback(t *testing.T) {
	p := New(nil, time.UTC)
	dto := p.State("s1", played(t, "e4", "c5"))

	if dto.ID != "s1" || dto.Turn != "white" || dto.PlayerSide != "white" {
		t.Fatalf("unexpected header %+v", dto)
	}
	fb := dto.Feedback
	if fb.Verdict != "success" || fb.Status != "success" || fb.EndOfLine {
		t.Fatalf("unexpected feedback %+v", fb)
	}
	if fb.LastMove == nil || fb.LastMove.SAN != "e4" || fb.LastMove.From != "e2" {
		t.Fatalf("last move = %+v", fb.LastMove)
	}
	if fb.StatusText != "Correct." || fb.VerdictText != "e4 is in the quiz." {
		t.Fatalf("texts = %q / %q", fb.StatusText, fb.VerdictText)
	}
	if len(dto.Legal) == 0 {
		t.Fatalf("legal moves missing on player turn")
	}
}

func TestStateFailureAndHiddenAllowed(t *testing.T) {
	st := played(t, "d4")
	st.View.ShowAllowed = false
	dto := New(nil, time.UTC).State("s", st)
	if dto.Feedback.Status != "failure" {
		t.Fatalf("status = %s", dto.Feedback.Status)
	}
	if dto.Feedback.Allowed != nil {
		t.Fatalf("allowed shown while hidden: %v", dto.Feedback.Allowed)
	}
	if dto.Legal != nil {
		t.Fatalf("legal moves listed off turn")
	}
}

func TestSavedUntitledAndLabel(t *testing.T) {
	p := New(nil, time.UTC)
	out := p.Saved([]domain.SavedQuiz{{
		ID:       "q1",
		PGN:      "1. e4 e5 *",
		SaveDate: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}})
	if len(out) != 1 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].Title != "Untitled" || out[0].Plies != 2 {
		t.Fatalf("unexpected %+v", out[0])
	}
	if !strings.HasPrefix(out[0].Label, "2024-01-02 03:04:05 - Untitled - 2 moves") {
		t.Fatalf("label = %q", out[0].Label)
	}
	if out[0].SaveDate != "2024-01-02T03:04:05.000Z" {
		t.Fatalf("save date = %q", out[0].SaveDate)
	}
}

func TestActionDecoding(t *testing.T) {
	yes := true
	cases := []struct {
		req  quizdto.ActionRequest
		want quiz.Action
	}{
		{quizdto.ActionRequest{Type: "playMove", Move: "e4"}, quiz.PlayMove{Move: "e4"}},
		{quizdto.ActionRequest{Type: "undoMove"}, quiz.Undo{}},
		{quizdto.ActionRequest{Type: "jumpToRandomPosition"}, quiz.JumpToRandomPosition{}},
		{quizdto.ActionRequest{Type: "setFlipped", Flipped: &yes}, quiz.SetFlipped{Flipped: true}},
		{quizdto.ActionRequest{Type: "setSquareSize", SquareSize: 64}, quiz.SetSquareSize{Size: 64}},
	}
	for _, tc := range cases {
		got, err := Action(tc.req)
		if err != nil {
			t.Fatalf("%s: %v", tc.req.Type, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %#v", tc.req.Type, got)
		}
	}
	for _, bad := range []string{"setIndex", "setLoaded", "setSaved", "loadQuiz", "nope"} {
		if _, err := Action(quizdto.ActionRequest{Type: bad}); !errors.Is(err, quiz.ErrUnknownAction) {
			t.Fatalf("%s: err = %v", bad, err)
		}
	}
	if _, err := Action(quizdto.ActionRequest{Type: "setFlipped"}); err == nil {
		t.Fatalf("setFlipped without value accepted")
	}
}
