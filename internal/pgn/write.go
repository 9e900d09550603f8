package pgn

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/park285/opening-quiz/internal/board"
)

var headerLine = regexp.MustCompile(`(?m)^\s*\[[^\]]*\]\s*$`)

// Write serializes a game to PGN text: known tag pairs, then movetext with
// variations in parentheses after the move they replace.
func Write(g *Game) string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	for _, k := range tagKeys {
		if v, ok := g.Tags[k]; ok {
			b.WriteString("[" + k + " " + strconv.Quote(v) + "]\n")
		}
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	words := lineWords(g.Root)
	result := g.Tags["Result"]
	if result == "" {
		result = unknownResult
	}
	words = append(words, result)
	b.WriteString(strings.Join(words, " "))
	return b.String()
}

// lineWords renders a line starting at n. The first move always carries
// its number, as does a black move following a variation.
func lineWords(n *Node) []string {
	var words []string
	numbered := true
	for ; n != nil; n = n.Next {
		num := strconv.Itoa(n.Before.MoveNumber())
		switch {
		case n.Before.Turn() == board.White:
			words = append(words, num+".", n.Notation)
		case numbered:
			words = append(words, num+"...", n.Notation)
		default:
			words = append(words, n.Notation)
		}
		numbered = false
		for _, v := range n.Variations {
			sub := lineWords(v)
			if len(sub) == 0 {
				continue
			}
			sub[0] = "(" + sub[0]
			sub[len(sub)-1] += ")"
			words = append(words, sub...)
			numbered = true
		}
	}
	return words
}

// StripHeaders removes tag pair lines, leaving the movetext.
func StripHeaders(text string) string {
	return strings.TrimSpace(headerLine.ReplaceAllString(text, ""))
}

// MovesText renders SAN moves as numbered movetext: "1. e4 e5 2. Nf3".
// Numbering starts at white's first move.
func MovesText(moves []string) string {
	var b strings.Builder
	for i, mv := range moves {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i%2 == 0 {
			b.WriteString(strconv.Itoa(i/2 + 1))
			b.WriteString(". ")
		}
		b.WriteString(mv)
	}
	return b.String()
}
