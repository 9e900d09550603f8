package quiz

import (
	"reflect"
	"testing"
)

func TestLastMoveParity(t *testing.T) {
	m := newTestMachine()
	s := loadedState(t, sicilianPGN)

	if _, ok := LastMove(s); ok {
		t.Fatalf("empty stack has no last move")
	}

	one := mustReduce(t, m, s, PlayMove{Move: "e4"})
	if last, _ := LastMove(one); last.Move.SAN != "e4" {
		t.Fatalf("last after e4 = %s", last.Move.SAN)
	}

	two := mustReduce(t, m, one, PlayMove{Move: "c5"})
	if last, _ := LastMove(two); last.Move.SAN != "e4" {
		t.Fatalf("player to move should see own move, got %s", last.Move.SAN)
	}

	flippedOne := mustReduce(t, m, s, Flip{}, PlayMove{Move: "e4"})
	if last, _ := LastMove(flippedOne); last.Move.SAN != "e4" {
		t.Fatalf("single entry must be used, got %s", last.Move.SAN)
	}
}

func TestDeriveSuccessAndFinished(t *testing.T) {
	m := newTestMachine()
	s := mustReduce(t, m, loadedState(t, sicilianPGN), PlayMove{Move: "e4"})
	fb := Derive(s)
	if fb.Verdict != VerdictSuccess || fb.Status != StatusSuccess || fb.EndOfLine {
		t.Fatalf("after e4: %+v", fb)
	}
	if !reflect.DeepEqual(fb.Allowed, []string{"e4"}) {
		t.Fatalf("allowed = %v", fb.Allowed)
	}

	end := mustReduce(t, m, s, PlayMove{Move: "e5"}, PlayMove{Move: "Nf3"})
	fb = Derive(end)
	if !fb.EndOfLine || fb.Status != StatusFinished || fb.Verdict != VerdictSuccess {
		t.Fatalf("end of line: %+v", fb)
	}
	if fb.MovesText != "1. e4 e5 2. Nf3" {
		t.Fatalf("moves text = %q", fb.MovesText)
	}
}

func TestDeriveFailure(t *testing.T) {
	m := newTestMachine()
	s := mustReduce(t, m, loadedState(t, sicilianPGN), PlayMove{Move: "d4"})
	fb := Derive(s)
	if fb.Verdict != VerdictFailure || fb.Status != StatusFailure {
		t.Fatalf("d4: %+v", fb)
	}
	if !fb.EndOfLine {
		t.Fatalf("d4 leaves the index")
	}
}

func TestDeriveOutsideQuiz(t *testing.T) {
	m := newTestMachine()
	s := mustReduce(t, m, NewState(), PlayMove{Move: "e4"})
	fb := Derive(s)
	if fb.Verdict != VerdictNotInQuiz || fb.Status != StatusFinished {
		t.Fatalf("no index: %+v", fb)
	}
	if fb.Allowed != nil {
		t.Fatalf("allowed should be absent")
	}

	fresh := Derive(loadedState(t, sicilianPGN))
	if fresh.Verdict != VerdictNone || fresh.Status != StatusUnknown || fresh.LastMove != nil {
		t.Fatalf("fresh: %+v", fresh)
	}
}

func TestDeriveOpeningName(t *testing.T) {
	m := newTestMachine()
	s := mustReduce(t, m, NewState(), PlayMove{Move: "e4"}, PlayMove{Move: "c5"})
	fb := Derive(s)
	if fb.Opening == nil || fb.Opening.Code == "" {
		t.Fatalf("expected opening classification, got %+v", fb.Opening)
	}
}

func TestEndOfLineFollowsIndex(t *testing.T) {
	m := newTestMachine()
	s := mustReduce(t, m, loadedState(t, sicilianPGN), PlayMove{Move: "e4"}, PlayMove{Move: "c5"}, PlayMove{Move: "Nf3"})
	if fb := Derive(s); !fb.EndOfLine {
		t.Fatalf("leaf should be end of line: %+v", fb)
	}

	s.Index = s.Index.With(s.Board.Fingerprint(), "d6")
	if fb := Derive(s); fb.EndOfLine || fb.Status != StatusSuccess {
		t.Fatalf("extended index: %+v", fb)
	}
}
