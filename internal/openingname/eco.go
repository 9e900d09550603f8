// Package openingname classifies move sequences with the ECO book bundled
// in corentings/chess.
package openingname

import (
	"sort"
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/opening-quiz/internal/pgn"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

func book() *opening.BookECO {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	return ecoBook
}

// Opening is an ECO code with its title.
type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

func (o Opening) String() string {
	if o.Code == "" {
		return o.Title
	}
	return o.Code + " " + o.Title
}

// Classify returns the deepest ECO entry matching SAN moves played from the
// standard start. Unknown or illegal sequences report false.
func Classify(moves []string) (Opening, bool) {
	if len(moves) == 0 {
		return Opening{}, false
	}
	game := chesslib.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, chesslib.AlgebraicNotation{}, nil); err != nil {
			return Opening{}, false
		}
	}
	b := book()
	if b == nil {
		return Opening{}, false
	}
	eco := b.Find(game.Moves())
	if eco == nil {
		return Opening{}, false
	}
	return Opening{Code: eco.Code(), Title: eco.Title()}, true
}

// Entry groups the lines of a database that end in the same opening.
type Entry struct {
	Opening
	Lines   int      `json:"lines"`
	Example []string `json:"example"`
}

// Catalog walks every line of the games played from the standard start and
// groups them by ECO classification. Lines without a match are grouped
// under their own move text.
func Catalog(games []*pgn.Game) []Entry {
	groups := make(map[string]*Entry)
	var keys []string
	for _, g := range games {
		if g == nil || g.Initial == nil || !g.Initial.IsStart() {
			continue
		}
		for _, line := range lines(g.Root, nil) {
			op, ok := Classify(line)
			key := op.Code + "|" + op.Title
			if !ok {
				op = Opening{Title: pgn.MovesText(line)}
				key = "|" + strings.Join(line, " ")
			}
			entry, exists := groups[key]
			if !exists {
				entry = &Entry{Opening: op, Example: line}
				groups[key] = entry
				keys = append(keys, key)
			}
			entry.Lines++
		}
	}
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, *groups[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Code == "" || out[j].Code == "" {
			return out[i].Code != ""
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// lines enumerates every root-to-leaf path starting at node.
func lines(node *pgn.Node, prefix []string) [][]string {
	if node == nil {
		if len(prefix) == 0 {
			return nil
		}
		return [][]string{prefix}
	}
	var out [][]string
	for _, v := range node.Variations {
		out = append(out, lines(v, prefix)...)
	}
	path := append(append([]string(nil), prefix...), node.Notation)
	return append(lines(node.Next, path), out...)
}
