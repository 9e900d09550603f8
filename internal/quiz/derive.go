package quiz

import (
	"github.com/park285/opening-quiz/internal/openingname"
	"github.com/park285/opening-quiz/internal/pgn"
)

// Verdict grades the move shown as the last move.
type Verdict string

const (
	VerdictNone      Verdict = "none"
	VerdictNotInQuiz Verdict = "not_in_quiz"
	VerdictSuccess   Verdict = "success"
	VerdictFailure   Verdict = "failure"
)

// Status is the overall feedback class shown beside the board.
type Status string

const (
	StatusFailure  Status = "failure"
	StatusFinished Status = "finished"
	StatusSuccess  Status = "success"
	StatusUnknown  Status = "unknown"
)

// Feedback is everything derived from a State for display.
type Feedback struct {
	LastMove     *StackEntry
	Allowed      []string
	Verdict      Verdict
	EndOfLine    bool
	Status       Status
	MovesText    string
	Opening      *openingname.Opening
	PlayerToMove bool
}

// LastMove selects the player's most recent move. When the player is to
// move, the opponent's reply is skipped, so the entry is the second to last;
// otherwise it is the last. With a single entry that entry is used either way.
func LastMove(s State) (StackEntry, bool) {
	n := len(s.Stack)
	if n == 0 {
		return StackEntry{}, false
	}
	i := n - 1
	if s.Board.Turn() == s.PlayerSide() {
		i = n - 2
	}
	if i < 0 {
		i = 0
	}
	return s.Stack[i], true
}

// Derive computes the feedback for s.
func Derive(s State) Feedback {
	fb := Feedback{
		Verdict:      VerdictNone,
		MovesText:    pgn.MovesText(s.Moves()),
		PlayerToMove: s.Board.Turn() == s.PlayerSide(),
	}

	last, ok := LastMove(s)
	allowedKnown := false
	if ok {
		entry := last
		fb.LastMove = &entry
		if s.Index.Has(last.Before.Fingerprint()) {
			allowedKnown = true
			fb.Allowed = s.Index.Moves(last.Before.Fingerprint())
			if s.Index.Contains(last.Before.Fingerprint(), last.Move.SAN) {
				fb.Verdict = VerdictSuccess
			} else {
				fb.Verdict = VerdictFailure
			}
		} else {
			fb.Verdict = VerdictNotInQuiz
		}
	}

	fb.EndOfLine = !s.Index.Has(s.Board.Fingerprint())

	switch {
	case fb.Verdict == VerdictFailure:
		fb.Status = StatusFailure
	case fb.EndOfLine:
		fb.Status = StatusFinished
	case allowedKnown:
		fb.Status = StatusSuccess
	default:
		fb.Status = StatusUnknown
	}

	if len(s.Stack) > 0 && s.Stack[0].Before.IsStart() {
		if op, ok := openingname.Classify(s.Moves()); ok {
			fb.Opening = &op
		}
	}
	return fb
}
