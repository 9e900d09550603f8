package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type pieceCacheKey struct {
	piece chesslib.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

var (
	whitePieceColors = svgColors{Fill: "#f8f8f8", Stroke: "#1b1b1b", Detail: "#1b1b1b"}
	blackPieceColors = svgColors{Fill: "#262626", Stroke: "#0a0a0a", Detail: "#e8e8e8"}
)

func renderPieceImage(piece chesslib.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name := pieceAssetName(piece.Type())
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	colors := whitePieceColors
	if piece.Color() == chesslib.Black {
		colors = blackPieceColors
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(tintSVG(data, colors)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

func pieceAssetName(pt chesslib.PieceType) string {
	var letter string
	switch pt {
	case chesslib.King:
		letter = "K"
	case chesslib.Queen:
		letter = "Q"
	case chesslib.Rook:
		letter = "R"
	case chesslib.Bishop:
		letter = "B"
	case chesslib.Knight:
		letter = "N"
	default:
		letter = "P"
	}
	return "assets/pieces/" + letter + ".svg"
}
