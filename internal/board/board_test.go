package board

import (
	"errors"
	"testing"
)

func TestStartFingerprintDropsCounters(t *testing.T) {
	got := Start().Fingerprint()
	want := Fingerprint("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -")
	if got != want {
		t.Fatalf("start fingerprint = %q, want %q", got, want)
	}
	if !Start().IsStart() {
		t.Fatalf("expected start board to report IsStart")
	}
	if got.Turn() != White {
		t.Fatalf("start turn = %s", got.Turn())
	}
}

func TestPlaySANAndUCI(t *testing.T) {
	b := Start()
	afterSAN, mv, err := b.Play("e4")
	if err != nil {
		t.Fatalf("play e4: %v", err)
	}
	if mv.SAN != "e4" || mv.UCI != "e2e4" {
		t.Fatalf("unexpected move %+v", mv)
	}
	afterUCI, mv2, err := b.Play("e2e4")
	if err != nil {
		t.Fatalf("play e2e4: %v", err)
	}
	if mv2.SAN != "e4" {
		t.Fatalf("uci move san = %q", mv2.SAN)
	}
	if afterSAN.Fingerprint() != afterUCI.Fingerprint() {
		t.Fatalf("fingerprints differ: %q vs %q", afterSAN.Fingerprint(), afterUCI.Fingerprint())
	}
	if afterSAN.Turn() != Black {
		t.Fatalf("turn after e4 = %s", afterSAN.Turn())
	}
	if !b.IsStart() {
		t.Fatalf("Play must not mutate the receiver")
	}
}

func TestPlayRejectsIllegal(t *testing.T) {
	for _, mv := range []string{"", "e5", "Ke2", "e2e5", "zz"} {
		if _, _, err := Start().Play(mv); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("Play(%q) err = %v, want ErrIllegalMove", mv, err)
		}
	}
}

func TestFromFENAcceptsFingerprint(t *testing.T) {
	after, _, err := Start().Play("e4")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	restored, err := FromFEN(after.Fingerprint().String())
	if err != nil {
		t.Fatalf("from fingerprint: %v", err)
	}
	if restored.Fingerprint() != after.Fingerprint() {
		t.Fatalf("restored %q, want %q", restored.Fingerprint(), after.Fingerprint())
	}
	if _, err := FromFEN("not a fen"); err == nil {
		t.Fatalf("expected error for malformed fen")
	}
}

func TestTranspositionSharesFingerprint(t *testing.T) {
	a := playLine(t, "Nf3", "Nf6", "g3")
	b := playLine(t, "g3", "Nf6", "Nf3")
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("transposition fingerprints differ: %q vs %q", a.Fingerprint(), b.Fingerprint())
	}
}

func TestSideOpposite(t *testing.T) {
	if White.Opposite() != Black || Black.Opposite() != White {
		t.Fatalf("Opposite is not symmetric")
	}
}

func playLine(t *testing.T, moves ...string) *Board {
	t.Helper()
	b := Start()
	for _, mv := range moves {
		next, _, err := b.Play(mv)
		if err != nil {
			t.Fatalf("play %s: %v", mv, err)
		}
		b = next
	}
	return b
}

func TestPawnTranspositionDropsIdleEnPassant(t *testing.T) {
	a := playLine(t, "e4", "e6", "d4")
	b := playLine(t, "d4", "e6", "e4")
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("transposition fingerprints differ: %q vs %q", a.Fingerprint(), b.Fingerprint())
	}
	want := Fingerprint("rnbqkbnr/pppp1ppp/4p3/8/3PP3/8/PPP2PPP/RNBQKBNR b KQkq -")
	if a.Fingerprint() != want {
		t.Fatalf("fingerprint = %q, want %q", a.Fingerprint(), want)
	}
}

func TestFingerprintKeepsCapturableEnPassant(t *testing.T) {
	b := playLine(t, "e4", "Nf6", "e5", "d5")
	want := Fingerprint("rnbqkb1r/ppp1pppp/5n2/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6")
	if b.Fingerprint() != want {
		t.Fatalf("fingerprint = %q, want %q", b.Fingerprint(), want)
	}
	if _, _, err := b.Play("exd6"); err != nil {
		t.Fatalf("en passant capture: %v", err)
	}
}

func TestMoveNumber(t *testing.T) {
	if n := Start().MoveNumber(); n != 1 {
		t.Fatalf("start move number = %d", n)
	}
	if n := playLine(t, "e4", "e5").MoveNumber(); n != 2 {
		t.Fatalf("move number after e4 e5 = %d", n)
	}
	if n := playLine(t, "e4").MoveNumber(); n != 1 {
		t.Fatalf("move number after e4 = %d", n)
	}
}
