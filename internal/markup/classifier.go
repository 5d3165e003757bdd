package markup

import (
	"log/slog"
	"strconv"

	"github.com/olos-console/backend/internal/apperr"
	"github.com/olos-console/backend/internal/geometry"
	"github.com/olos-console/backend/internal/logging"
	"github.com/olos-console/backend/internal/models"
)

// AllowedShapes are the element names that draw something on the machine.
var AllowedShapes = []string{"path", "rect", "circle", "ellipse", "line", "polyline", "polygon", "text"}

// Classifier buckets the drawable elements of a document by shape and color.
type Classifier struct {
	allowed map[string]struct{}
}

// NewClassifier creates a Classifier for the given element names. With no
// names it uses AllowedShapes.
func NewClassifier(shapes ...string) *Classifier {
	if len(shapes) == 0 {
		shapes = AllowedShapes
	}
	allowed := make(map[string]struct{}, len(shapes))
	for _, s := range shapes {
		allowed[s] = struct{}{}
	}
	return &Classifier{allowed: allowed}
}

// Classify runs the default classifier over root.
func Classify(root *models.MarkupNode) (*models.Classification, error) {
	return NewClassifier().Classify(root)
}

// Classify walks root depth-first. Drawable elements get their inherited
// attributes merged in, an "id" attribute holding their sequence number, and
// a place in exactly one shape bucket and up to two color buckets.
//
// The nodes of root are modified in place.
func (c *Classifier) Classify(root *models.MarkupNode) (*models.Classification, error) {
	if root == nil {
		return nil, apperr.NewPreconditionViolation("cannot classify a nil document")
	}

	w := &walk{
		allowed:    c.allowed,
		result:     models.NewClassification(),
		shapeIndex: make(map[string]*models.ShapeBucket),
		colorIndex: make(map[string]*models.ColorBucket),
		log:        logging.For("markup"),
	}
	if root.Name == "svg" {
		w.result.RootAttributes = root.Attrs.Clone()
	}
	if err := w.visit(root, nil); err != nil {
		return nil, err
	}

	w.log.Debug("classified document",
		"elements", len(w.result.Elements),
		"shapes", len(w.result.Shapes),
		"colors", len(w.result.Colors))
	return w.result, nil
}

type walk struct {
	allowed    map[string]struct{}
	result     *models.Classification
	shapeIndex map[string]*models.ShapeBucket
	colorIndex map[string]*models.ColorBucket
	nextID     int
	log        *slog.Logger
}

func (w *walk) visit(node *models.MarkupNode, parent models.Attributes) error {
	for _, child := range node.Children {
		_, drawable := w.allowed[child.Name]
		if drawable {
			if err := w.classify(child, parent); err != nil {
				return err
			}
		}

		if len(child.Children) == 0 {
			continue
		}
		// a classified child already carries its inherited attributes
		context := child.Attrs.Clone()
		if !drawable {
			context = inherit(child.Attrs, parent)
		}
		if err := w.visit(child, context); err != nil {
			return err
		}
	}
	return nil
}

// inherit overlays own on parent. Transforms are composed so nested groups
// accumulate.
func inherit(own, parent models.Attributes) models.Attributes {
	merged := own.Merge(parent)
	if parent != nil {
		if t := geometry.ComposeTransformAttr(parent.Get("transform"), own.Get("transform")); t != "" {
			merged["transform"] = t
		}
	}
	return merged
}

func (w *walk) classify(node *models.MarkupNode, parent models.Attributes) error {
	node.Attrs = inherit(node.Attrs, parent)

	id := w.nextID
	w.nextID++
	node.Attrs["id"] = strconv.Itoa(id)

	matrix, err := geometry.ParseTransform(node.Attrs.Get("transform"))
	if err != nil {
		return apperr.NewMalformedDocument("element "+node.Attrs["id"]+" has an invalid transform", err)
	}

	el := &models.ClassifiedElement{ID: id, Node: node, Matrix: [6]float64(matrix)}
	w.result.Elements = append(w.result.Elements, el)

	w.addShape(el)

	if err := w.addStrokeColor(el); err != nil {
		return err
	}
	return w.addFillColor(el)
}

func (w *walk) addShape(el *models.ClassifiedElement) {
	b, ok := w.shapeIndex[el.Node.Name]
	if !ok {
		b = &models.ShapeBucket{Shape: el.Node.Name}
		w.shapeIndex[el.Node.Name] = b
		w.result.Shapes = append(w.result.Shapes, b)
	}
	b.Elements = append(b.Elements, el)
}

func (w *walk) addStrokeColor(el *models.ClassifiedElement) error {
	attrs := el.Node.Attrs

	var value string
	if s := attrs.Get("stroke"); s != "" {
		value = s
	} else if style := attrs.Get("style"); style != "" {
		value, _ = styleValue(strokeDecl, style)
	}
	if isNoColor(value) {
		return nil
	}
	return w.addColor(el, value)
}

func (w *walk) addFillColor(el *models.ClassifiedElement) error {
	attrs := el.Node.Attrs

	if f := attrs.Get("fill"); f != "" {
		if isNoColor(f) {
			return nil
		}
		return w.addColor(el, f)
	}

	if style := attrs.Get("style"); style != "" {
		value, declared := styleValue(fillDecl, style)
		if declared {
			if isNoColor(value) {
				return nil
			}
			return w.addColor(el, value)
		}
	}

	return w.addCanonical(el, Black)
}

// addColor buckets value when it resolves to a literal color. Paint servers
// such as url(#gradient), currentColor and inherit do not, and are skipped.
func (w *walk) addColor(el *models.ClassifiedElement, value string) error {
	rgb, err := CanonicalColor(value)
	if err != nil {
		w.log.Debug("skipping unresolved paint", "element", el.ID, "value", value, "error", err)
		return nil
	}
	return w.addCanonical(el, rgb)
}

func (w *walk) addCanonical(el *models.ClassifiedElement, rgb string) error {
	b, ok := w.colorIndex[rgb]
	if !ok {
		b = &models.ColorBucket{Color: rgb}
		w.colorIndex[rgb] = b
		w.result.Colors = append(w.result.Colors, b)
	}
	if !b.Contains(el) {
		b.Elements = append(b.Elements, el)
	}
	return nil
}
