package markup

import (
	"fmt"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Black is the canonical color used for elements with no fill information.
const Black = "rgb(0, 0, 0)"

var (
	strokeDecl = regexp.MustCompile(`stroke:\s*(.*?)(?:;|$)`)
	fillDecl   = regexp.MustCompile(`fill:\s*(.*?)(?:;|$)`)
)

// styleValue extracts a declaration from a style attribute. ok is false when
// the property is not declared.
func styleValue(re *regexp.Regexp, style string) (string, bool) {
	m := re.FindStringSubmatch(style)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// isNoColor reports whether v paints nothing.
func isNoColor(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none", "transparent":
		return true
	}
	return false
}

// CanonicalColor converts a CSS/SVG color value to the "rgb(r, g, b)" form.
func CanonicalColor(value string) (string, error) {
	c, err := parseColor(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B), nil
}

func parseColor(value string) (color.RGBA, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimSpace(strings.TrimSuffix(v, "!important"))

	switch {
	case strings.HasPrefix(v, "#"):
		return parseHex(v[1:])
	case strings.HasPrefix(v, "rgb(") || strings.HasPrefix(v, "rgba("):
		return parseFunctional(v)
	}
	if c, ok := colornames.Map[v]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown color %q", value)
}

func parseHex(h string) (color.RGBA, error) {
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6:
	default:
		return color.RGBA{}, fmt.Errorf("bad hex color %q", "#"+h)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad hex color %q", "#"+h)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
}

func parseFunctional(v string) (color.RGBA, error) {
	open := strings.IndexByte(v, '(')
	if !strings.HasSuffix(v, ")") {
		return color.RGBA{}, fmt.Errorf("unterminated color %q", v)
	}
	parts := strings.FieldsFunc(v[open+1:len(v)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(parts) != 3 && len(parts) != 4 {
		return color.RGBA{}, fmt.Errorf("bad color %q", v)
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		p := parts[i]
		percent := strings.HasSuffix(p, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("bad color channel %q in %q", parts[i], v)
		}
		if percent {
			f = f * 255 / 100
		}
		ch[i] = uint8(math.Round(math.Max(0, math.Min(255, f))))
	}
	return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 0xff}, nil
}
