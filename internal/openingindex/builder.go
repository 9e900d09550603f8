package openingindex

import (
	"github.com/park285/opening-quiz/internal/board"
	"github.com/park285/opening-quiz/internal/pgn"
)

// Builder accumulates games into an Index.
type Builder struct {
	idx *Index
}

func NewBuilder() *Builder {
	return &Builder{idx: &Index{entries: make(map[board.Fingerprint][]string)}}
}

// Add records every move of the game, variations included, under the
// fingerprint of the position it was played from.
func (b *Builder) Add(g *pgn.Game) {
	if g == nil || g.Root == nil {
		return
	}
	initial := g.Initial
	if initial == nil {
		initial = board.Start()
	}
	b.walk(g.Root, initial)
}

func (b *Builder) walk(node *pgn.Node, preceding *board.Board) {
	if node == nil {
		return
	}
	b.idx.add(preceding.Fingerprint(), node.Notation)
	if node.Next != nil {
		b.walk(node.Next, node.After)
	}
	// Variations are alternatives to node, so they start from the same position.
	for _, v := range node.Variations {
		b.walk(v, preceding)
	}
}

// Index returns a snapshot of what has been added so far.
func (b *Builder) Index() *Index { return b.idx.clone() }

// Build indexes all games in order.
func Build(games []*pgn.Game) *Index {
	b := NewBuilder()
	for _, g := range games {
		b.Add(g)
	}
	return b.idx
}

// FromPGN parses text and builds its index.
func FromPGN(text string) (*Index, *pgn.Database, error) {
	db, err := pgn.Read(text)
	if err != nil {
		return nil, nil, err
	}
	return Build(db.Games), db, nil
}
