package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type ShapeKind uint8

const (
	ShapeBall ShapeKind = iota
	ShapeCuboid
	ShapeCapsule
	ShapeCompound
	ShapeTriMesh
	ShapePlane
	ShapePolyline
	ShapeTriangle
	ShapeSegment
	ShapeConvexHull
	ShapeHeightField
)

var shapeNames = [...]string{
	ShapeBall:        "ball",
	ShapeCuboid:      "cuboid",
	ShapeCapsule:     "capsule",
	ShapeCompound:    "compound",
	ShapeTriMesh:     "trimesh",
	ShapePlane:       "plane",
	ShapePolyline:    "polyline",
	ShapeTriangle:    "triangle",
	ShapeSegment:     "segment",
	ShapeConvexHull:  "convex_hull",
	ShapeHeightField: "heightfield",
}

func (k ShapeKind) String() string {
	if int(k) < len(shapeNames) {
		return shapeNames[k]
	}
	return "unknown"
}

// ParseShapeKind maps a lowercase shape name back to its kind.
func ParseShapeKind(name string) (ShapeKind, bool) {
	for k, n := range shapeNames {
		if n == name {
			return ShapeKind(k), true
		}
	}
	return 0, false
}

// CompoundPart is one child of a compound shape, placed relative to the
// compound's origin.
type CompoundPart struct {
	Offset Isometry
	Shape  Shape
}

// Shape is a tagged union over the supported collision shapes. Only the
// fields relevant to Kind are meaningful.
type Shape struct {
	Kind ShapeKind

	Radius      float64    // ball, capsule
	HalfHeight  float64    // capsule, along local Y
	HalfExtents mgl64.Vec3 // cuboid
	Normal      mgl64.Vec3 // plane, through the local origin

	// Points holds the vertices of polyline, triangle (3), segment (2),
	// convex hull and trimesh shapes.
	Points  []mgl64.Vec3
	Indices [][3]uint32 // trimesh

	// Heights is a row-major grid sampled over [-Scale.X/2, Scale.X/2] ×
	// [-Scale.Z/2, Scale.Z/2], each sample multiplied by Scale.Y.
	Heights [][]float64
	Scale   mgl64.Vec3

	Parts []CompoundPart
}

func Ball(radius float64) Shape { return Shape{Kind: ShapeBall, Radius: radius} }

func Cuboid(halfExtents mgl64.Vec3) Shape {
	return Shape{Kind: ShapeCuboid, HalfExtents: halfExtents}
}

func Capsule(halfHeight, radius float64) Shape {
	return Shape{Kind: ShapeCapsule, HalfHeight: halfHeight, Radius: radius}
}

func Plane(normal mgl64.Vec3) Shape {
	return Shape{Kind: ShapePlane, Normal: normal.Normalize()}
}

func Segment(a, b mgl64.Vec3) Shape {
	return Shape{Kind: ShapeSegment, Points: []mgl64.Vec3{a, b}}
}

func Triangle(a, b, c mgl64.Vec3) Shape {
	return Shape{Kind: ShapeTriangle, Points: []mgl64.Vec3{a, b, c}}
}

func Polyline(points []mgl64.Vec3) Shape {
	return Shape{Kind: ShapePolyline, Points: points}
}

func ConvexHull(points []mgl64.Vec3) Shape {
	return Shape{Kind: ShapeConvexHull, Points: points}
}

func TriMesh(points []mgl64.Vec3, indices [][3]uint32) Shape {
	return Shape{Kind: ShapeTriMesh, Points: points, Indices: indices}
}

func HeightField(heights [][]float64, scale mgl64.Vec3) Shape {
	return Shape{Kind: ShapeHeightField, Heights: heights, Scale: scale}
}

func Compound(parts ...CompoundPart) Shape {
	return Shape{Kind: ShapeCompound, Parts: parts}
}

// BoundingRadius returns the radius of a sphere centered at the shape's
// local origin that contains the whole shape. Planes are unbounded.
func (s Shape) BoundingRadius() float64 {
	switch s.Kind {
	case ShapeBall:
		return s.Radius
	case ShapeCuboid:
		return s.HalfExtents.Len()
	case ShapeCapsule:
		return s.HalfHeight + s.Radius
	case ShapePlane:
		return math.Inf(1)
	case ShapeHeightField:
		maxH := 0.0
		for _, row := range s.Heights {
			for _, h := range row {
				maxH = math.Max(maxH, math.Abs(h*s.Scale.Y()))
			}
		}
		return mgl64.Vec3{s.Scale.X() / 2, maxH, s.Scale.Z() / 2}.Len()
	case ShapeCompound:
		r := 0.0
		for _, p := range s.Parts {
			r = math.Max(r, p.Offset.Translation.Len()+p.Shape.BoundingRadius())
		}
		return r
	}
	r := 0.0
	for _, p := range s.Points {
		r = math.Max(r, p.Len())
	}
	return r
}
