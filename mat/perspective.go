package mat

import "math"

// Perspective builds a right-handed perspective projection matrix. fov
// (radians) is the field of view along the x axis; the y axis is scaled by
// aspect relative to x.
func Perspective(fov, aspect, near, far float32) Mat4 {
	halfFovCot := 1 / float32(math.Tan(float64(fov/2)))
	return Mat4{
		halfFovCot, 0, 0, 0,
		0, aspect * halfFovCot, 0, 0,
		0, 0, -(far + near) / (far - near), -1,
		0, 0, -2 * far * near / (far - near), 0,
	}
}
