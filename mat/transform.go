package mat

import "math"

func Translate(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

func Scale(sx, sy, sz float32) Mat4 {
	return Mat4{
		sx, 0, 0, 0,
		0, sy, 0, 0,
		0, 0, sz, 0,
		0, 0, 0, 1,
	}
}

// Rotate returns the Rodrigues rotation matrix for a right-handed rotation
// of ang radians about the axis (x, y, z), which must be unit length.
func Rotate(x, y, z, ang float32) Mat4 {
	s := float32(math.Sin(float64(ang)))
	c := float32(math.Cos(float64(ang)))
	t := 1 - c

	return Mat4{
		c + x*x*t, y*x*t + z*s, z*x*t - y*s, 0,
		x*y*t - z*s, c + y*y*t, z*y*t + x*s, 0,
		x*z*t + y*s, y*z*t - x*s, c + z*z*t, 0,
		0, 0, 0, 1,
	}
}
