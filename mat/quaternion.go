package mat

// Quaternion is a unit rotation quaternion in w,x,y,z order, matching the
// field order PCD VIEWPOINT records and E57 pose elements use.
type Quaternion [4]float32

func NewQuaternion(w, x, y, z float32) Quaternion {
	return Quaternion{w, x, y, z}
}

// ToMat4 builds the affine rotation matrix for the quaternion.
func (q Quaternion) ToMat4() Mat4 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy), 0,
		2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx), 0,
		2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

// Rotate applies the quaternion's rotation to v.
func (q Quaternion) Rotate(v Vec3) Vec3 {
	return q.ToMat4().TransformAffine(v)
}
