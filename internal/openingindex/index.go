// Package openingindex maps board fingerprints to the moves a PGN database
// allows from them.
package openingindex

import (
	"github.com/park285/opening-quiz/internal/board"
)

// Index is an immutable mapping from fingerprint to the distinct moves
// recorded there, in first-seen order. Absence of a key means the position
// is outside the quiz. Present keys never map to an empty list.
//
// The zero value and a nil *Index are both empty.
type Index struct {
	order   []board.Fingerprint
	entries map[board.Fingerprint][]string
	moves   int
}

// Empty returns an index with no positions.
func Empty() *Index { return &Index{} }

// Moves returns a copy of the allowed moves at fp, or nil when fp is absent.
func (x *Index) Moves(fp board.Fingerprint) []string {
	if x == nil {
		return nil
	}
	moves, ok := x.entries[fp]
	if !ok {
		return nil
	}
	return append([]string(nil), moves...)
}

// Has reports whether fp is part of the quiz.
func (x *Index) Has(fp board.Fingerprint) bool {
	if x == nil {
		return false
	}
	_, ok := x.entries[fp]
	return ok
}

// Contains reports whether move is allowed at fp.
func (x *Index) Contains(fp board.Fingerprint, move string) bool {
	if x == nil {
		return false
	}
	for _, m := range x.entries[fp] {
		if m == move {
			return true
		}
	}
	return false
}

// Positions lists the indexed fingerprints in insertion order.
func (x *Index) Positions() []board.Fingerprint {
	if x == nil {
		return nil
	}
	return append([]board.Fingerprint(nil), x.order...)
}

// Len is the number of indexed positions.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.order)
}

// MoveCount is the number of distinct (position, move) pairs.
func (x *Index) MoveCount() int {
	if x == nil {
		return 0
	}
	return x.moves
}

// With returns a copy of the index with moves recorded at fp. The receiver
// is unchanged.
func (x *Index) With(fp board.Fingerprint, moves ...string) *Index {
	next := x.clone()
	for _, mv := range moves {
		next.add(fp, mv)
	}
	return next
}

// Snapshot returns a plain map copy, keyed by fingerprint string.
func (x *Index) Snapshot() map[string][]string {
	out := make(map[string][]string, x.Len())
	for _, fp := range x.Positions() {
		out[fp.String()] = x.Moves(fp)
	}
	return out
}

func (x *Index) clone() *Index {
	next := &Index{entries: make(map[board.Fingerprint][]string, x.Len())}
	if x == nil {
		return next
	}
	next.order = append([]board.Fingerprint(nil), x.order...)
	for fp, moves := range x.entries {
		next.entries[fp] = append([]string(nil), moves...)
	}
	next.moves = x.moves
	return next
}

func (x *Index) add(fp board.Fingerprint, move string) {
	if x.entries == nil {
		x.entries = make(map[board.Fingerprint][]string)
	}
	existing, ok := x.entries[fp]
	if !ok {
		x.order = append(x.order, fp)
	}
	for _, m := range existing {
		if m == move {
			return
		}
	}
	x.entries[fp] = append(existing, move)
	x.moves++
}
