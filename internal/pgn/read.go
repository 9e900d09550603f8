package pgn

import (
	"errors"
	"fmt"
	"io"
	"strings"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/opening-quiz/internal/board"
)

// ErrNoGames is wrapped by the ParseError returned for input without any game.
var ErrNoGames = errors.New("pgn contains no games")

// ParseError reports PGN text that could not be read.
type ParseError struct {
	Game int // 1-based index of the failing game, 0 when not game specific
	Err  error
}

func (e *ParseError) Error() string {
	if e.Game > 0 {
		return fmt.Sprintf("invalid pgn (game %d): %v", e.Game, e.Err)
	}
	return fmt.Sprintf("invalid pgn: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

const (
	fromPositionVariant = `Variant "From Position"`
	standardVariant     = `Variant "Standard"`
	unknownResult       = "*"
)

// Read parses every game in text. Setup-position games tagged
// Variant "From Position" are read as standard games, and text without a
// result terminator is retried once with " *" appended; the retry's error
// is returned when both attempts fail. Either every game parses or an
// error is returned.
func Read(text string) (*Database, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Err: ErrNoGames}
	}
	normalized := strings.ReplaceAll(text, fromPositionVariant, standardVariant)
	db, err := readAll(normalized)
	if err == nil {
		return db, nil
	}
	if strings.HasSuffix(strings.TrimSpace(normalized), unknownResult) {
		return nil, err
	}
	return readAll(normalized + " " + unknownResult)
}

func readAll(text string) (*Database, error) {
	db := &Database{}
	for _, chunk := range splitGames(text) {
		scanner := chesslib.NewScanner(strings.NewReader(chunk))
		for scanner.HasNext() {
			parsed, err := scanner.ParseNext()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, &ParseError{Game: len(db.Games) + 1, Err: err}
			}
			if parsed == nil {
				continue
			}
			db.Games = append(db.Games, fromLibrary(parsed))
		}
	}
	if len(db.Games) == 0 {
		return nil, &ParseError{Err: ErrNoGames}
	}
	return db, nil
}

var gameResults = []string{"1/2-1/2", "1-0", "0-1", unknownResult}

// splitGames cuts text after every game termination marker found outside
// tag pairs, comments and variations. Games without tag sections would
// otherwise run together.
func splitGames(text string) []string {
	var (
		games []string
		start int
		depth int
	)
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '{':
			i = skipPast(text, i, '}')
		case ';':
			i = skipPast(text, i, '\n')
		case '[':
			if depth == 0 {
				i = skipTag(text, i)
			}
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth > 0 || !tokenStart(text, i) {
				continue
			}
			if r := resultAt(text, i); r != "" {
				end := i + len(r)
				games = append(games, text[start:end])
				start = end
				i = end - 1
			}
		}
	}
	if strings.TrimSpace(text[start:]) != "" {
		games = append(games, text[start:])
	}
	return games
}

// skipPast returns the index of the first c after i, or the last index.
func skipPast(text string, i int, c byte) int {
	if j := strings.IndexByte(text[i+1:], c); j >= 0 {
		return i + 1 + j
	}
	return len(text) - 1
}

// skipTag returns the index of the ']' closing the tag pair at i. Quoted
// values may contain ']'.
func skipTag(text string, i int) int {
	quoted := false
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			if quoted {
				j++
			}
		case '"':
			quoted = !quoted
		case ']':
			if !quoted {
				return j
			}
		}
	}
	return len(text) - 1
}

func tokenStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	switch text[i-1] {
	case ' ', '\t', '\n', '\r', ')', '}':
		return true
	}
	return false
}

func resultAt(text string, i int) string {
	for _, r := range gameResults {
		if !strings.HasPrefix(text[i:], r) {
			continue
		}
		end := i + len(r)
		if end == len(text) || strings.IndexByte(" \t\r\n", text[end]) >= 0 {
			return r
		}
	}
	return ""
}

var tagKeys = []string{"Event", "Site", "Date", "Round", "White", "Black", "Result", "FEN", "SetUp", "Variant", "ECO", "Opening"}

func fromLibrary(parsed *chesslib.Game) *Game {
	tags := make(map[string]string)
	for _, k := range tagKeys {
		if v := parsed.GetTagPair(k); v != "" {
			tags[k] = v
		}
	}
	root := parsed.GetRootMove()
	initial := board.Start()
	if root != nil && root.Position() != nil {
		initial = board.FromPosition(root.Position())
	}
	return &Game{
		Tags:    tags,
		Initial: initial,
		Root:    buildLine(root, initial),
	}
}

// buildLine converts the children of parent into a Node: the first child
// becomes the line's node and the rest become its variations.
func buildLine(parent *chesslib.Move, before *board.Board) *Node {
	if parent == nil {
		return nil
	}
	children := parent.Children()
	if len(children) == 0 {
		return nil
	}
	head := newNode(children[0], before)
	for _, alt := range children[1:] {
		if n := newNode(alt, before); n != nil {
			head.Variations = append(head.Variations, n)
		}
	}
	return head
}

func newNode(mv *chesslib.Move, before *board.Board) *Node {
	if mv == nil {
		return nil
	}
	after := board.FromPosition(mv.Position())
	if after == nil {
		after = board.FromPosition(before.Position().Update(mv))
	}
	return &Node{
		Notation: chesslib.AlgebraicNotation{}.Encode(before.Position(), mv),
		Before:   before,
		After:    after,
		Next:     buildLine(mv, after),
	}
}
