package recipe

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/sceneexport/common"
	"github.com/milk9111/sceneexport/scene"
)

// Reserved recipe keys. Custom properties may not use them.
const (
	KeyType     = "type"
	KeyPose     = "pose"
	KeyWidth    = "width"
	KeyHeight   = "height"
	KeyPolyline = "polyline"
	KeyEllipse  = "ellipse"

	keyRecipes = "recipes"
)

var reservedKeys = []string{KeyType, KeyPose, KeyWidth, KeyHeight, KeyPolyline, KeyEllipse}

// Recipe is the engine-ready description of one placed object. It is kept
// as a generic map so hooks and null stripping can treat every key alike.
type Recipe map[string]any

// Document is the exported scene: the recipes plus any map-level properties.
type Document struct {
	Recipes []Recipe
	Meta    map[string]any
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.tree())
}

func (d *Document) tree() map[string]any {
	out := make(map[string]any, len(d.Meta)+1)
	for k, v := range d.Meta {
		out[k] = v
	}
	recipes := make([]any, len(d.Recipes))
	for i, r := range d.Recipes {
		recipes[i] = map[string]any(r)
	}
	out[keyRecipes] = recipes
	return out
}

// Hook rewrites a recipe before null stripping.
type Hook interface {
	Apply(r map[string]any) (map[string]any, error)
}

type Options struct {
	// Scale is the number of editor units per engine unit. Zero means
	// common.DefaultScale.
	Scale float64
	// KnownTypes, when non-empty, rejects objects of any other type.
	KnownTypes []string
	Hooks      []Hook
}

func (o Options) scale() float64 {
	if o.Scale == 0 {
		return common.DefaultScale
	}
	return o.Scale
}

// Export converts a parsed scene into a recipe document. The document is
// validated first; any object that cannot be exported rejects the whole
// scene with a *scene.ValidationError.
func Export(doc *scene.Document, opts Options) (*Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	meta := scene.PropertyMap(doc.Properties)
	if _, ok := meta[keyRecipes]; ok {
		return nil, &scene.ValidationError{Object: -1, Field: "properties", Reason: `map property "recipes" collides with the recipe list`}
	}

	placed := doc.Objects()
	out := &Document{Recipes: make([]Recipe, 0, len(placed)), Meta: meta}
	for _, p := range placed {
		r, err := build(p, opts)
		if err != nil {
			return nil, err
		}
		out.Recipes = append(out.Recipes, r)
	}

	StripNulls(out.Meta)
	StripNulls(out.tree())
	return out, nil
}

func build(p scene.Placed, opts Options) (Recipe, error) {
	obj := p.Object
	invalid := func(field, reason string) error {
		return &scene.ValidationError{Layer: p.Layer, Object: p.Index, Field: field, Reason: reason}
	}

	kind := obj.Kind()
	if len(opts.KnownTypes) > 0 && !slices.Contains(opts.KnownTypes, kind) {
		return nil, invalid(KeyType, fmt.Sprintf("unknown recipe type %q", kind))
	}

	s := opts.scale()
	r := Recipe{
		KeyType:    kind,
		KeyPose:    Pose(*obj.X, *obj.Y, *obj.Width, *obj.Height, obj.Rotation, s),
		KeyWidth:   common.Scale(*obj.Width, s),
		KeyHeight:  common.Scale(*obj.Height, s),
		KeyEllipse: obj.Ellipse,
	}
	if obj.Polyline != nil {
		r[KeyPolyline] = Polyline(obj.Polyline, s)
	}

	for name, value := range scene.PropertyMap(obj.Properties) {
		if slices.Contains(reservedKeys, name) {
			return nil, invalid("properties", fmt.Sprintf("property %q collides with a reserved recipe key", name))
		}
		r[name] = value
	}

	for _, h := range opts.Hooks {
		next, err := h.Apply(r)
		if err != nil {
			return nil, invalid("", fmt.Sprintf("hook: %v", err))
		}
		r = next
	}
	if field, ok := nonFinite(map[string]any(r), ""); ok {
		return nil, invalid(field, "value is not a finite number")
	}
	return r, nil
}

// Pose moves an editor object's top-left anchor to its center and converts
// it to engine space. The Y flip is applied after the rotated half-extent
// offset is added.
func Pose(x, y, width, height, rotationDeg, scale float64) map[string]any {
	angle := common.DegToRad(rotationDeg)
	offset := cp.Vector{X: width / 2, Y: height / 2}.Rotate(cp.ForAngle(angle))
	center := cp.Vector{X: x + offset.X, Y: -(y + offset.Y)}
	return map[string]any{
		"x":        common.Scale(center.X, scale),
		"y":        common.Scale(center.Y, scale),
		"rotation": common.FlipRotation(angle),
	}
}

// Polyline scales points and flips their Y axis. Points stay relative to
// the object anchor; no rotation or centering is applied to them.
func Polyline(points []scene.Point, scale float64) []any {
	out := make([]any, len(points))
	for i, p := range points {
		out[i] = map[string]any{
			"x": common.Scale(p.X, scale),
			"y": common.Scale(-p.Y, scale),
		}
	}
	return out
}

// nonFinite reports the path of the first NaN or infinite number in v.
func nonFinite(v any, path string) (string, bool) {
	switch t := v.(type) {
	case float64:
		return path, math.IsNaN(t) || math.IsInf(t, 0)
	case map[string]any:
		for k, child := range t {
			if field, ok := nonFinite(child, joinPath(path, k)); ok {
				return field, true
			}
		}
	case []any:
		for i, child := range t {
			if field, ok := nonFinite(child, fmt.Sprintf("%s[%d]", path, i)); ok {
				return field, true
			}
		}
	}
	return "", false
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
