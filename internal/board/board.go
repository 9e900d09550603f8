// Package board wraps corentings/chess positions as immutable values keyed by
// a counter-free FEN fingerprint.
package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

// ErrIllegalMove is returned when a notation does not name a legal move in the position.
var ErrIllegalMove = errors.New("illegal move")

// Side identifies the color to move.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Opposite() Side {
	if s == Black {
		return White
	}
	return Black
}

func (s Side) String() string { return string(s) }

// Fingerprint is the first four FEN fields: placement, side to move,
// castling rights and en passant square. Move counters are dropped and the
// en passant square is kept only when a capture onto it is legal, so
// transpositions share one key.
type Fingerprint string

// Turn reports the side to move encoded in the fingerprint.
func (f Fingerprint) Turn() Side {
	fields := strings.Fields(string(f))
	if len(fields) > 1 && fields[1] == "b" {
		return Black
	}
	return White
}

func (f Fingerprint) String() string { return string(f) }

// Move describes a move that was applied to a board.
type Move struct {
	SAN  string
	UCI  string
	From chesslib.Square
	To   chesslib.Square
}

// Board is an immutable chess position. Play returns a new Board.
type Board struct {
	pos *chesslib.Position
	fp  Fingerprint
}

var startFingerprint = fingerprintOf(chesslib.StartingPosition())

// StartFingerprint returns the fingerprint of the standard initial position.
func StartFingerprint() Fingerprint { return startFingerprint }

// Start returns the standard initial position.
func Start() *Board { return FromPosition(chesslib.StartingPosition()) }

// FromPosition wraps an existing library position. A nil position yields nil.
func FromPosition(pos *chesslib.Position) *Board {
	if pos == nil {
		return nil
	}
	return &Board{pos: pos, fp: fingerprintOf(pos)}
}

// FromFEN parses a FEN. Fingerprints (four fields) are accepted and get
// the default "0 1" counters.
func FromFEN(fen string) (*Board, error) {
	fields := strings.Fields(fen)
	switch len(fields) {
	case 4:
		fields = append(fields, "0", "1")
	case 5:
		fields = append(fields, "1")
	case 6:
	default:
		return nil, fmt.Errorf("parse fen %q: want 4 to 6 fields, got %d", fen, len(fields))
	}
	opt, err := chesslib.FEN(strings.Join(fields, " "))
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return FromPosition(chesslib.NewGame(opt).Position()), nil
}

func fingerprintOf(pos *chesslib.Position) Fingerprint {
	fields := strings.Fields(pos.String())
	if len(fields) > 4 {
		fields = fields[:4]
	}
	if len(fields) == 4 && fields[3] != "-" && !canCaptureEnPassant(pos) {
		fields[3] = "-"
	}
	return Fingerprint(strings.Join(fields, " "))
}

func canCaptureEnPassant(pos *chesslib.Position) bool {
	for _, mv := range pos.ValidMoves() {
		if mv.HasTag(chesslib.EnPassant) {
			return true
		}
	}
	return false
}

func (b *Board) Fingerprint() Fingerprint { return b.fp }

func (b *Board) FEN() string { return b.pos.String() }

// Position exposes the underlying position for rendering and encoding.
// Callers must not mutate it.
func (b *Board) Position() *chesslib.Position { return b.pos }

// MoveNumber is the FEN fullmove counter.
func (b *Board) MoveNumber() int {
	fields := strings.Fields(b.pos.String())
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (b *Board) Turn() Side {
	if b.pos.Turn() == chesslib.Black {
		return Black
	}
	return White
}

// IsStart reports whether the board equals the standard initial position.
func (b *Board) IsStart() bool { return b.fp == startFingerprint }

// Play applies a move given in SAN or, failing that, UCI coordinates.
// The receiver is left untouched.
func (b *Board) Play(notation string) (*Board, Move, error) {
	raw := strings.TrimSpace(notation)
	if raw == "" {
		return nil, Move{}, fmt.Errorf("%w: empty notation", ErrIllegalMove)
	}
	mv, err := b.decode(raw)
	if err != nil {
		return nil, Move{}, err
	}
	played := Move{
		SAN:  chesslib.AlgebraicNotation{}.Encode(b.pos, mv),
		UCI:  chesslib.UCINotation{}.Encode(b.pos, mv),
		From: mv.S1(),
		To:   mv.S2(),
	}
	next := b.pos.Update(mv)
	if next == nil {
		return nil, Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, raw)
	}
	return FromPosition(next), played, nil
}

// Legal lists the SAN of every legal move in the position.
func (b *Board) Legal() []string {
	valid := b.pos.ValidMoves()
	out := make([]string, 0, len(valid))
	for i := range valid {
		out = append(out, chesslib.AlgebraicNotation{}.Encode(b.pos, &valid[i]))
	}
	return out
}

// decode resolves the notation to one of the position's legal moves so the
// returned move carries the library's capture and castling tags.
func (b *Board) decode(raw string) (*chesslib.Move, error) {
	candidate, sanErr := chesslib.AlgebraicNotation{}.Decode(b.pos, raw)
	if sanErr != nil {
		uci, uciErr := chesslib.UCINotation{}.Decode(b.pos, strings.ToLower(raw))
		if uciErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrIllegalMove, raw)
		}
		candidate = uci
	}
	valid := b.pos.ValidMoves()
	for i := range valid {
		if valid[i].S1() == candidate.S1() && valid[i].S2() == candidate.S2() && valid[i].Promo() == candidate.Promo() {
			return &valid[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrIllegalMove, raw)
}
