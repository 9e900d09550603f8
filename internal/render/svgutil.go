package render

import "bytes"

type svgColors struct {
	Fill   string
	Stroke string
	Detail string
}

// tintSVG fills the {{fill}}, {{stroke}} and {{detail}} placeholders of a
// piece template.
func tintSVG(svg []byte, c svgColors) []byte {
	out := bytes.ReplaceAll(svg, []byte("{{fill}}"), []byte(c.Fill))
	out = bytes.ReplaceAll(out, []byte("{{stroke}}"), []byte(c.Stroke))
	return bytes.ReplaceAll(out, []byte("{{detail}}"), []byte(c.Detail))
}
