package spatial

import (
	"math"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

// EstimateNormals computes a per-point normal via PCA over each point's
// k-nearest neighbors in g, following spec.md §4.6's analytic symmetric
// 3x3 eigensolve (Smith's trigonometric method for the smallest
// eigenvalue) rather than an iterative solver.
func EstimateNormals(points []mat.Vec3, g *Grid, k int) []mat.Vec3 {
	out := make([]mat.Vec3, len(points))
	for i, p := range points {
		out[i] = estimateNormal(points, g, i, p, k)
	}
	return out
}

var upY = mat.NewVec3(0, 1, 0)

func estimateNormal(points []mat.Vec3, g *Grid, i int, p mat.Vec3, k int) mat.Vec3 {
	neighbors := g.KNearest(p, k, i)
	if len(neighbors) < 3 {
		return upY
	}

	var centroid mat.Vec3
	for _, idx := range neighbors {
		centroid = centroid.Add(points[idx])
	}
	centroid = centroid.Mul(1 / float32(len(neighbors)))

	var a, b, c, d, e, f float64 // covariance [[a,b,c],[b,d,e],[c,e,f]]
	for _, idx := range neighbors {
		q := points[idx].Sub(centroid)
		a += float64(q[0] * q[0])
		b += float64(q[0] * q[1])
		c += float64(q[0] * q[2])
		d += float64(q[1] * q[1])
		e += float64(q[1] * q[2])
		f += float64(q[2] * q[2])
	}
	n := float64(len(neighbors))
	a, b, c, d, e, f = a/n, b/n, c/n, d/n, e/n, f/n

	normal, ok := smallestEigenvector(a, b, c, d, e, f)
	if !ok {
		return upY
	}

	toPoint := p.Sub(centroid)
	if normal.Dot(toPoint) < 0 {
		normal = normal.Mul(-1)
	}
	return normal
}

// smallestEigenvector returns the unit eigenvector of the smallest
// eigenvalue of the symmetric matrix M = [[a,b,c],[b,d,e],[c,e,f]], using
// the closed-form trigonometric solution for 3x3 symmetric eigenproblems.
func smallestEigenvector(a, b, c, d, e, f float64) (mat.Vec3, bool) {
	q := (a + d + f) / 3
	pa, pd, pf := a-q, d-q, f-q
	p := math.Sqrt((pa*pa + pd*pd + pf*pf + 2*(b*b+c*c+e*e)) / 6)
	if p < 1e-15 {
		return mat.Vec3{}, false
	}

	// det((M-qI)/p)
	ma, mb, mc := pa/p, b/p, c/p
	md, me := pd/p, e/p
	mf := pf/p
	det := ma*(md*mf-me*me) - mb*(mb*mf-me*mc) + mc*(mb*me-md*mc)
	r := clamp(det/2, -1, 1)
	phi := math.Acos(r) / 3

	lambda := q + 2*p*math.Cos(phi+2*math.Pi/3)

	// Null space of M - lambda*I via cross products of its rows; try every
	// row pair and keep the first with a non-degenerate norm.
	r0 := mat.NewVec3(float32(a-lambda), float32(b), float32(c))
	r1 := mat.NewVec3(float32(b), float32(d-lambda), float32(e))
	r2 := mat.NewVec3(float32(c), float32(e), float32(f-lambda))

	for _, pair := range [][2]mat.Vec3{{r0, r1}, {r0, r2}, {r1, r2}} {
		v := pair[0].Cross(pair[1])
		if v.Norm() >= 1e-12 {
			return v.Normalized(), true
		}
	}
	return mat.Vec3{}, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
