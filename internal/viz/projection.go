package viz

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is an orthographic view of the inertial frame. With zero azimuth
// and elevation it looks down the +Z axis with X to the right.
type Camera struct {
	Azimuth   float64
	Elevation float64
	Zoom      float64
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1}
}

func (c *Camera) Rotate(azimuth, elevation float64) {
	c.Azimuth += azimuth
	c.Elevation = math.Max(-math.Pi/2, math.Min(math.Pi/2, c.Elevation+elevation))
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(20, c.Zoom*1.25) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.05, c.Zoom/1.25) }

// view rotates p about Z by the azimuth, then about X by the elevation. The
// returned Z is the depth toward the viewer.
func (c *Camera) view(p r3.Vec) r3.Vec {
	ca, sa := math.Cos(c.Azimuth), math.Sin(c.Azimuth)
	p.X, p.Y = p.X*ca-p.Y*sa, p.X*sa+p.Y*ca
	ce, se := math.Cos(c.Elevation), math.Sin(c.Elevation)
	p.Y, p.Z = p.Y*ce-p.Z*se, p.Y*se+p.Z*ce
	return p
}

// Project maps p to canvas dots so that a sphere of radius extent fills the
// shorter side of a cw x ch dot canvas at unit zoom.
func (c *Camera) Project(p r3.Vec, extent float64, cw, ch int) (x, y int, depth float64) {
	v := c.view(p)
	scale := c.scale(extent, cw, ch)
	return cw/2 + int(math.Round(v.X*scale)), ch/2 - int(math.Round(v.Y*scale)), v.Z
}

func (c *Camera) scale(extent float64, cw, ch int) float64 {
	if extent <= 0 {
		return 0
	}
	return float64(min(cw, ch)) / 2 / extent * c.Zoom
}

// OrbitPlot draws the central body's limb and the trajectory through the
// given positions. Segments passing behind the body are hidden.
func OrbitPlot(c *Canvas, cam *Camera, positions []r3.Vec, bodyRadius float64) {
	cw, ch := c.Dots()
	extent := bodyRadius
	for _, p := range positions {
		extent = math.Max(extent, r3.Norm(p))
	}
	extent *= 1.05

	scale := cam.scale(extent, cw, ch)
	c.DrawCircle(cw/2, ch/2, int(math.Round(bodyRadius*scale)))

	hidden := func(p r3.Vec) bool {
		v := cam.view(p)
		return v.Z < 0 && math.Hypot(v.X, v.Y) < bodyRadius
	}

	for i, p := range positions {
		x1, y1, _ := cam.Project(p, extent, cw, ch)
		if hidden(p) {
			continue
		}
		if i == 0 || hidden(positions[i-1]) {
			c.Set(x1, y1)
			continue
		}
		x0, y0, _ := cam.Project(positions[i-1], extent, cw, ch)
		c.DrawLine(x0, y0, x1, y1)
	}
}
