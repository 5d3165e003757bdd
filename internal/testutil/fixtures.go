package testutil

import (
	"fmt"
	"strings"
)

// SVG wraps elements in an svg root.
func SVG(elements ...string) string {
	return `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100">` +
		strings.Join(elements, "") + `</svg>`
}

// GCodeLines returns n absolute G1 moves, the k-th (1-based) ending at
// (k*stepX, k*stepY), preceded by a G21 G90 header line. The result has
// n+1 lines.
func GCodeLines(n int, stepX, stepY float64) []string {
	lines := make([]string, 0, n+1)
	lines = append(lines, "G21 G90")
	for k := 1; k <= n; k++ {
		lines = append(lines, fmt.Sprintf("G1 X%.3f Y%.3f", float64(k)*stepX, float64(k)*stepY))
	}
	return lines
}

// GCode joins lines into a document.
func GCode(lines ...string) string {
	return strings.Join(lines, "\n")
}

// Rectangle returns a program tracing a w x h rectangle from (x, y).
func Rectangle(x, y, w, h float64) string {
	return GCode(
		"G21 G90",
		fmt.Sprintf("G0 X%g Y%g", x, y),
		fmt.Sprintf("G1 X%g Y%g", x+w, y),
		fmt.Sprintf("G1 X%g Y%g", x+w, y+h),
		fmt.Sprintf("G1 X%g Y%g", x, y+h),
		fmt.Sprintf("G1 X%g Y%g", x, y),
	)
}
