package render

import (
	"math"
	"sort"

	"github.com/ivlev/scenecomp/internal/scene"
)

const nearClip = 0.1

// projector maps world points to pixel coordinates for a pinhole camera.
type projector struct {
	origin             scene.Vec3
	forward, right, up scene.Vec3
	scale              float64
	halfW, halfH       float64
}

func newProjector(cam *scene.Camera, width, height int) projector {
	forward := cam.Forward
	if forward.Len() == 0 {
		forward = scene.Forward
	}
	forward = forward.Normalize()

	worldUp := scene.Vec3{Y: 1}
	if math.Abs(forward.Dot(worldUp)) > 0.999 {
		worldUp = scene.Vec3{Z: -1}
	}
	right := forward.Cross(worldUp).Normalize()
	up := right.Cross(forward)

	focal, sensor := cam.FocalLength, cam.SensorWidth
	if focal <= 0 {
		focal = 50
	}
	if sensor <= 0 {
		sensor = 36
	}
	// sensor fit auto: the sensor spans the larger image dimension
	scale := focal / sensor * float64(max(width, height))

	return projector{
		origin:  cam.Location,
		forward: forward,
		right:   right,
		up:      up,
		scale:   scale,
		halfW:   float64(width) / 2,
		halfH:   float64(height) / 2,
	}
}

// depth returns the distance of p along the view axis.
func (pr projector) depth(p scene.Vec3) float64 {
	return p.Sub(pr.origin).Dot(pr.forward)
}

// project returns the pixel position of p, false when p is behind the near plane.
func (pr projector) project(p scene.Vec3) (point, bool) {
	d := p.Sub(pr.origin)
	z := d.Dot(pr.forward)
	if z < nearClip {
		return point{}, false
	}
	x := d.Dot(pr.right) / z
	y := d.Dot(pr.up) / z
	return point{
		X: pr.halfW + x*pr.scale,
		Y: pr.halfH - y*pr.scale,
	}, true
}

type point struct {
	X, Y float64
}

// samplePoints returns points on the surface of a primitive whose convex
// hull is its silhouette.
func samplePoints(m *scene.Mesh) []scene.Vec3 {
	s := m.Size
	if s <= 0 {
		s = 1
	}
	c := m.Location
	var pts []scene.Vec3

	switch m.Shape {
	case scene.Cube:
		for _, x := range []float64{-s, s} {
			for _, y := range []float64{-s, s} {
				for _, z := range []float64{-s, s} {
					pts = append(pts, c.Add(scene.Vec3{X: x, Y: y, Z: z}))
				}
			}
		}
	case scene.Sphere:
		const rings, segments = 16, 32
		for i := 0; i <= rings; i++ {
			phi := math.Pi * float64(i) / rings
			for j := 0; j < segments; j++ {
				theta := 2 * math.Pi * float64(j) / segments
				pts = append(pts, c.Add(scene.Vec3{
					X: s * math.Sin(phi) * math.Cos(theta),
					Y: s * math.Cos(phi),
					Z: s * math.Sin(phi) * math.Sin(theta),
				}))
			}
		}
	case scene.Cone:
		// axis along +Y, base radius s, height 2s
		const segments = 32
		pts = append(pts, c.Add(scene.Vec3{Y: s}))
		for j := 0; j < segments; j++ {
			theta := 2 * math.Pi * float64(j) / segments
			pts = append(pts, c.Add(scene.Vec3{
				X: s * math.Cos(theta),
				Y: -s,
				Z: s * math.Sin(theta),
			}))
		}
	}
	return pts
}

// convexHull returns the hull of pts in counter-clockwise order (monotone chain).
func convexHull(pts []point) []point {
	if len(pts) < 3 {
		return pts
	}
	sorted := append([]point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
