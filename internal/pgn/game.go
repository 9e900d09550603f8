// Package pgn reads PGN databases into an immutable move tree whose nodes
// carry the positions before and after each move.
package pgn

import (
	"github.com/park285/opening-quiz/internal/board"
)

// Node is one move in a game tree. Next continues the line this node
// belongs to. Variations are alternatives to this node's move and share
// its Before position.
type Node struct {
	Notation   string
	Before     *board.Board
	After      *board.Board
	Next       *Node
	Variations []*Node
}

// Game is a single parsed game.
type Game struct {
	Tags    map[string]string
	Initial *board.Board
	Root    *Node
}

// Database is an ordered list of games.
type Database struct {
	Games []*Game
}

// Event returns the Event tag, or "" when absent.
func (g *Game) Event() string {
	if g == nil {
		return ""
	}
	return g.Tags["Event"]
}

// PGN returns the game serialized back to PGN text.
func (g *Game) PGN() string { return Write(g) }

// PlyCount counts every node in the tree, variations included.
func (g *Game) PlyCount() int {
	if g == nil {
		return 0
	}
	return countNodes(g.Root)
}

func countNodes(n *Node) int {
	total := 0
	for ; n != nil; n = n.Next {
		total++
		for _, v := range n.Variations {
			total += countNodes(v)
		}
	}
	return total
}

// MainLine returns the notations along the first line of the game.
func (g *Game) MainLine() []string {
	if g == nil {
		return nil
	}
	var out []string
	for n := g.Root; n != nil; n = n.Next {
		out = append(out, n.Notation)
	}
	return out
}

// First returns the first game, or nil for an empty database.
func (db *Database) First() *Game {
	if db == nil || len(db.Games) == 0 {
		return nil
	}
	return db.Games[0]
}

// InitialBoard returns the first game's initial position, falling back to
// the standard start.
func (db *Database) InitialBoard() *board.Board {
	if g := db.First(); g != nil && g.Initial != nil {
		return g.Initial
	}
	return board.Start()
}
