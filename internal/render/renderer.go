// Package render draws quiz boards as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	chesslib "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/opening-quiz/internal/board"
	"github.com/park285/opening-quiz/internal/quiz"
)

const (
	MinSquareSize = 16
	MaxSquareSize = 160
)

// MoveHighlight marks the squares of a move and how it was graded.
type MoveHighlight struct {
	From    chesslib.Square
	To      chesslib.Square
	Verdict quiz.Verdict
}

type Options struct {
	SquareSize int
	Flipped    bool
	Highlight  *MoveHighlight
	Header     string
}

// Renderer draws boards. The zero value is ready to use.
type Renderer struct{}

func New() *Renderer { return &Renderer{} }

// RenderPNG draws the session board with its orientation, square size and
// last-move grading.
func (r *Renderer) RenderPNG(st quiz.State) ([]byte, error) {
	if st.Board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	fb := quiz.Derive(st)
	opts := Options{
		SquareSize: st.View.SquareSize,
		Flipped:    st.Flipped,
		Header:     headerText(fb),
	}
	if n := len(st.Stack); n > 0 {
		last := st.Stack[n-1]
		opts.Highlight = &MoveHighlight{From: last.Move.From, To: last.Move.To, Verdict: quiz.VerdictNone}
		if fb.LastMove != nil && fb.LastMove.Move == last.Move {
			opts.Highlight.Verdict = fb.Verdict
		}
	}
	return r.Render(context.Background(), st.Board, opts)
}

func headerText(fb quiz.Feedback) string {
	text := string(fb.Status)
	if fb.Opening != nil {
		text += " | " + fb.Opening.String()
	}
	return text
}

// Render draws b with the given options.
func (r *Renderer) Render(ctx context.Context, b *board.Board, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	squareSize := ClampSquareSize(opts.SquareSize)

	margin := squareSize / 3
	if margin < 16 {
		margin = 16
	}
	headerHeight := 0
	if opts.Header != "" {
		headerHeight = 24
	}
	boardSize := squareSize * 8
	totalWidth := boardSize + margin*2
	totalHeight := boardSize + margin*2 + headerHeight
	origin := image.Point{X: margin, Y: margin + headerHeight}
	geo := geometry{size: squareSize, origin: origin, flipped: opts.Flipped}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	face := basicFace()
	if headerHeight > 0 {
		panel := image.Rect(margin, 4, totalWidth-margin, headerHeight)
		drawRoundedPanel(img, panel, 6, hudPanelColor)
		drawer := &font.Drawer{Dst: img, Face: face}
		drawCenteredString(drawer, panel, truncateWithEllipsis(face, opts.Header, panel.Dx()-12), hudTextPrimary)
	}

	drawSquares(img, geo)
	drawHighlight(img, opts.Highlight, geo)
	if err := drawPieces(img, b.Position().Board(), geo); err != nil {
		return nil, err
	}
	drawTurnMarker(img, b.Turn(), geo)
	drawCoordinates(img, face, geo, margin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func basicFace() font.Face { return basicfont.Face7x13 }

// ClampSquareSize bounds a requested square size; non-positive sizes get
// the default.
func ClampSquareSize(n int) int {
	switch {
	case n <= 0:
		return quiz.DefaultSquareSize
	case n < MinSquareSize:
		return MinSquareSize
	case n > MaxSquareSize:
		return MaxSquareSize
	}
	return n
}

var (
	backgroundColor     = color.RGBA{R: 40, G: 43, B: 58, A: 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	successHighlight    = color.NRGBA{R: 120, G: 200, B: 110, A: 150}
	failureHighlight    = color.NRGBA{R: 230, G: 90, B: 80, A: 150}
	neutralHighlight    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	whiteTurnMarker     = color.NRGBA{R: 245, G: 245, B: 245, A: 255}
	blackTurnMarker     = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
)

// geometry maps squares to pixels for one orientation.
type geometry struct {
	size    int
	origin  image.Point
	flipped bool
}

func (g geometry) cell(row, col int) image.Rectangle {
	x := g.origin.X + col*g.size
	y := g.origin.Y + row*g.size
	return image.Rect(x, y, x+g.size, y+g.size)
}

func (g geometry) squareAt(row, col int) chesslib.Square {
	if g.flipped {
		return chesslib.NewSquare(chesslib.File(7-col), chesslib.Rank(row))
	}
	return chesslib.NewSquare(chesslib.File(col), chesslib.Rank(7-row))
}

func (g geometry) squareRect(sq chesslib.Square) image.Rectangle {
	row := 7 - int(sq.Rank())
	col := int(sq.File())
	if g.flipped {
		row = int(sq.Rank())
		col = 7 - int(sq.File())
	}
	return g.cell(row, col)
}

func drawSquares(dst imagedraw.Image, g geometry) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			clr := squareColor(g.squareAt(row, col))
			imagedraw.Draw(dst, g.cell(row, col), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, b *chesslib.Board, g geometry) error {
	boardMap := b.SquareMap()
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			piece := boardMap[g.squareAt(row, col)]
			if piece == chesslib.NoPiece {
				continue
			}
			img, err := renderPieceImage(piece, g.size)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, g.cell(row, col), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawHighlight(img *image.RGBA, h *MoveHighlight, g geometry) {
	if h == nil {
		return
	}
	clr := color.Color(neutralHighlight)
	switch h.Verdict {
	case quiz.VerdictSuccess:
		clr = successHighlight
	case quiz.VerdictFailure:
		clr = failureHighlight
	}
	drawSquareOverlay(img, g.squareRect(h.From), clr)
	drawSquareOverlay(img, g.squareRect(h.To), clr)
	if h.Verdict == quiz.VerdictFailure {
		drawArrow(img, g.squareRect(h.From), g.squareRect(h.To), g.size, failureHighlight)
	}
}

func drawSquareOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

// drawTurnMarker puts a disc beside the board on the side to move.
func drawTurnMarker(img *image.RGBA, turn board.Side, g geometry) {
	radius := g.size / 10
	if radius < 4 {
		radius = 4
	}
	bottom := turn == board.White
	if g.flipped {
		bottom = !bottom
	}
	x := g.origin.X + 8*g.size + radius + 2
	y := g.origin.Y + radius + 2
	if bottom {
		y = g.origin.Y + 8*g.size - radius - 2
	}
	clr := color.Color(whiteTurnMarker)
	if turn == board.Black {
		clr = blackTurnMarker
	}
	drawDisc(img, image.Point{X: x, Y: y}, radius, clr)
}

func drawCoordinates(dst imagedraw.Image, face font.Face, g geometry, margin int) {
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := g.origin.Y + 8*g.size
	for i := 0; i < 8; i++ {
		sq := g.squareAt(i, i)
		rankCenter := g.origin.Y + i*g.size + g.size/2
		fileCenter := g.origin.X + i*g.size + g.size/2
		drawCenteredText(drawer, sq.Rank().String(), g.origin.X-margin/2, rankCenter+ascent/2)
		drawCenteredText(drawer, sq.File().String(), fileCenter, boardEndY+ascent+2)
	}
}

func squareColor(sq chesslib.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
