package recipe

import (
	"github.com/jakecoffman/cp"
)

// Bounds returns the engine-space box covering every recipe's rotated
// extents and polyline points. ok is false when no recipe has a pose.
func Bounds(doc *Document) (bb cp.BB, ok bool) {
	for _, r := range doc.Recipes {
		pose, isMap := r[KeyPose].(map[string]any)
		if !isMap {
			continue
		}
		center := cp.Vector{X: number(pose["x"]), Y: number(pose["y"])}
		rot := cp.ForAngle(number(pose["rotation"]))
		hw, hh := number(r[KeyWidth])/2, number(r[KeyHeight])/2

		box := cp.NewBBForExtents(center, 0, 0)
		for _, corner := range []cp.Vector{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}} {
			box = box.Expand(center.Add(corner.Rotate(rot)))
		}

		if pts, isList := r[KeyPolyline].([]any); isList {
			for _, p := range pts {
				pt, isPt := p.(map[string]any)
				if !isPt {
					continue
				}
				box = box.Expand(center.Add(cp.Vector{X: number(pt["x"]), Y: number(pt["y"])}))
			}
		}

		if !ok {
			bb, ok = box, true
			continue
		}
		bb = bb.Merge(box)
	}
	return bb, ok
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
