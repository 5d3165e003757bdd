package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/math/f64"

	"github.com/olos-console/backend/internal/models"
)

// Identity is the identity affine transform.
var Identity = f64.Aff3{1, 0, 0, 0, 1, 0}

// Mul returns a∘b: the transform that applies b first, then a.
func Mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Apply maps p through m.
func Apply(m f64.Aff3, p models.Point) models.Point {
	return models.Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) f64.Aff3 {
	return f64.Aff3{1, 0, tx, 0, 1, ty}
}

// Scale returns a scaling matrix.
func Scale(sx, sy float64) f64.Aff3 {
	return f64.Aff3{sx, 0, 0, 0, sy, 0}
}

// Rotate returns a rotation matrix for deg degrees.
func Rotate(deg float64) f64.Aff3 {
	s, c := math.Sincos(Radians(deg))
	return f64.Aff3{c, -s, 0, s, c, 0}
}

// ComposeTransformAttr joins an inherited transform attribute with an
// element's own. The parent's functions come first in the resulting list,
// so they wrap the child's.
func ComposeTransformAttr(parent, child string) string {
	parent = strings.TrimSpace(parent)
	child = strings.TrimSpace(child)
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	default:
		return parent + " " + child
	}
}

// ParseTransform parses an SVG transform list into a matrix.
func ParseTransform(s string) (f64.Aff3, error) {
	k := transformTokenizer{p: s}
	result := Identity
	for k.scan() {
		narg := len(k.arg)
		switch k.fn {
		case "matrix":
			if narg != 6 {
				return Identity, fmt.Errorf("matrix must have 6 arguments, got %d", narg)
			}
			a := k.arg
			result = Mul(result, f64.Aff3{a[0], a[2], a[4], a[1], a[3], a[5]})

		case "translate":
			if narg != 1 && narg != 2 {
				return Identity, fmt.Errorf("translate must have 1 or 2 arguments, got %d", narg)
			}
			var tx, ty float64
			k.unpack(&tx, &ty)
			result = Mul(result, Translate(tx, ty))

		case "scale":
			if narg != 1 && narg != 2 {
				return Identity, fmt.Errorf("scale must have 1 or 2 arguments, got %d", narg)
			}
			var sx, sy float64
			k.unpack(&sx, &sy)
			if narg == 1 {
				sy = sx
			}
			result = Mul(result, Scale(sx, sy))

		case "rotate":
			if narg != 1 && narg != 3 {
				return Identity, fmt.Errorf("rotate must have 1 or 3 arguments, got %d", narg)
			}
			var deg, cx, cy float64
			k.unpack(&deg, &cx, &cy)
			r := Mul(Translate(cx, cy), Mul(Rotate(deg), Translate(-cx, -cy)))
			result = Mul(result, r)

		case "skewX":
			if narg != 1 {
				return Identity, fmt.Errorf("skewX must have 1 argument, got %d", narg)
			}
			result = Mul(result, f64.Aff3{1, math.Tan(Radians(k.arg[0])), 0, 0, 1, 0})

		case "skewY":
			if narg != 1 {
				return Identity, fmt.Errorf("skewY must have 1 argument, got %d", narg)
			}
			result = Mul(result, f64.Aff3{1, 0, 0, math.Tan(Radians(k.arg[0])), 1, 0})

		default:
			return Identity, fmt.Errorf("unknown transform function %q", k.fn)
		}
	}
	if k.err != nil {
		return Identity, k.err
	}
	return result, nil
}

type transformTokenizer struct {
	p string
	i int

	fn  string
	arg []float64

	err error
}

func isSep(c int) bool {
	return c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r'
}

func (k *transformTokenizer) skipSep() {
	for isSep(k.ch()) {
		k.i++
	}
}

func (k *transformTokenizer) scan() bool {
	if k.err != nil {
		return false
	}
	k.skipSep()
	if k.ch() == -1 {
		return false
	}
	if !k.parseFn() {
		return false
	}
	k.arg = k.arg[:0]
	for k.parseArg() {
	}
	return k.err == nil
}

func (k *transformTokenizer) unpack(argp ...*float64) {
	n := len(argp)
	if m := len(k.arg); m < n {
		n = m
	}
	for i, p := range argp[:n] {
		*p = k.arg[i]
	}
}

func (k *transformTokenizer) ch() int {
	if k.i < len(k.p) {
		return int(k.p[k.i])
	}
	return -1
}

func (k *transformTokenizer) parseFn() bool {
	start := k.i
	for {
		c := k.ch()
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			k.i++
			continue
		}
		break
	}
	if start == k.i {
		k.err = fmt.Errorf("expected transform function at offset %d", start)
		return false
	}
	k.fn = k.p[start:k.i]

	for k.ch() == ' ' {
		k.i++
	}
	if k.ch() != '(' {
		k.err = fmt.Errorf("expected '(' after %q at offset %d", k.fn, k.i)
		return false
	}
	k.i++
	return true
}

func (k *transformTokenizer) parseArg() bool {
	k.skipSep()
	if k.ch() == ')' {
		k.i++
		return false
	}

	start := k.i
	for {
		c := k.ch()
		if c == -1 || isSep(c) || c == ')' {
			break
		}
		// a sign after the first character starts the next number, as in "10-5"
		if (c == '-' || c == '+') && k.i > start {
			prev := k.p[k.i-1]
			if prev != 'e' && prev != 'E' {
				break
			}
		}
		k.i++
	}
	if start == k.i {
		k.err = fmt.Errorf("unterminated arguments for %q", k.fn)
		return false
	}

	v, err := strconv.ParseFloat(k.p[start:k.i], 64)
	if err != nil {
		k.err = fmt.Errorf("bad argument %q for %q", k.p[start:k.i], k.fn)
		return false
	}
	k.arg = append(k.arg, v)
	return true
}
