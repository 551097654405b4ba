package mat

// Mat4 is a column-major 4x4 matrix: element (row=i, col=j) lives at
// index 4*j+i.
type Mat4 [16]float32

func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (m Mat4) Add(a Mat4) Mat4 {
	var out Mat4
	for i := range m {
		out[i] = m[i] + a[i]
	}
	return out
}

func (m Mat4) Mul(a Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[4*k+i] * a[4*j+k]
			}
			out[4*j+i] = sum
		}
	}
	return out
}

// MulAffine multiplies two matrices assuming both have a bottom row of
// [0, 0, 0, 1]; it skips the row-4 dot products the general Mul performs.
func (m Mat4) MulAffine(a Mat4) Mat4 {
	var out Mat4
	for j := 0; j < 4; j++ {
		for i := 0; i < 3; i++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += m[4*k+i] * a[4*j+k]
			}
			if j == 3 {
				sum += m[4*3+i]
			}
			out[4*j+i] = sum
		}
		out[4*j+3] = 0
	}
	out[15] = 1
	return out
}

func (m Mat4) TransformX(a Vec3) float32 {
	return m[4*0+0]*a[0] + m[4*1+0]*a[1] + m[4*2+0]*a[2] + m[4*3+0]
}

func (m Mat4) TransformY(a Vec3) float32 {
	return m[4*0+1]*a[0] + m[4*1+1]*a[1] + m[4*2+1]*a[2] + m[4*3+1]
}

func (m Mat4) TransformZ(a Vec3) float32 {
	return m[4*0+2]*a[0] + m[4*1+2]*a[1] + m[4*2+2]*a[2] + m[4*3+2]
}

// TransformAffineZ is an alias of TransformZ kept for call sites that treat
// the matrix as strictly affine.
func (m Mat4) TransformAffineZ(a Vec3) float32 {
	return m.TransformZ(a)
}

// TransformW returns the homogeneous w coordinate of the transformed point,
// i.e. the full (non-affine) bottom row dot product.
func (m Mat4) TransformW(a Vec3) float32 {
	return m[4*0+3]*a[0] + m[4*1+3]*a[1] + m[4*2+3]*a[2] + m[4*3+3]
}

// Transform4 applies the full 4x4 matrix to a point and returns the
// homogeneous result without dividing by w.
func (m Mat4) Transform4(a Vec3) [4]float32 {
	return [4]float32{
		m.TransformX(a), m.TransformY(a), m.TransformZ(a), m.TransformW(a),
	}
}

// Transform applies the matrix ignoring the projective row, matching the
// teacher's convention of treating Transform/TransformAffine identically
// for affine matrices.
func (m Mat4) Transform(a Vec3) Vec3 {
	return m.TransformAffine(a)
}

func (m Mat4) TransformAffine(a Vec3) Vec3 {
	return Vec3{m.TransformX(a), m.TransformY(a), m.TransformZ(a)}
}

// Inv returns the general inverse of a 4x4 matrix via the adjugate over
// the determinant. Callers that know their matrix is affine should prefer
// InvAffine, which skips the row-4 terms.
func (m Mat4) Inv() Mat4 {
	m00, m01, m02, m03 := m[0], m[1], m[2], m[3]
	m10, m11, m12, m13 := m[4], m[5], m[6], m[7]
	m20, m21, m22, m23 := m[8], m[9], m[10], m[11]
	m30, m31, m32, m33 := m[12], m[13], m[14], m[15]

	b00 := m00*m11 - m01*m10
	b01 := m00*m12 - m02*m10
	b02 := m00*m13 - m03*m10
	b03 := m01*m12 - m02*m11
	b04 := m01*m13 - m03*m11
	b05 := m02*m13 - m03*m12
	b06 := m20*m31 - m21*m30
	b07 := m20*m32 - m22*m30
	b08 := m20*m33 - m23*m30
	b09 := m21*m32 - m22*m31
	b10 := m21*m33 - m23*m31
	b11 := m22*m33 - m23*m32

	det := b00*b11 - b01*b10 + b02*b09 + b03*b08 - b04*b07 + b05*b06
	if det == 0 {
		return Mat4{}
	}
	invDet := 1 / det

	return Mat4{
		(m11*b11 - m12*b10 + m13*b09) * invDet,
		(-m01*b11 + m02*b10 - m03*b09) * invDet,
		(m31*b05 - m32*b04 + m33*b03) * invDet,
		(-m21*b05 + m22*b04 - m23*b03) * invDet,

		(-m10*b11 + m12*b08 - m13*b07) * invDet,
		(m00*b11 - m02*b08 + m03*b07) * invDet,
		(-m30*b05 + m32*b02 - m33*b01) * invDet,
		(m20*b05 - m22*b02 + m23*b01) * invDet,

		(m10*b10 - m11*b08 + m13*b06) * invDet,
		(-m00*b10 + m01*b08 - m03*b06) * invDet,
		(m30*b04 - m31*b02 + m33*b00) * invDet,
		(-m20*b04 + m21*b02 - m23*b00) * invDet,

		(-m10*b09 + m11*b07 - m12*b06) * invDet,
		(m00*b09 - m01*b07 + m02*b06) * invDet,
		(-m30*b03 + m31*b01 - m32*b00) * invDet,
		(m20*b03 - m21*b01 + m22*b00) * invDet,
	}
}

// InvAffine inverts a matrix whose bottom row is assumed to be
// [0, 0, 0, 1]: invert the 3x3 linear part and recompute the translation
// as -R^-1 * t.
func (m Mat4) InvAffine() Mat4 {
	a00, a01, a02 := m[0], m[4], m[8]
	a10, a11, a12 := m[1], m[5], m[9]
	a20, a21, a22 := m[2], m[6], m[10]
	tx, ty, tz := m[12], m[13], m[14]

	det := a00*(a11*a22-a12*a21) - a01*(a10*a22-a12*a20) + a02*(a10*a21-a11*a20)
	if det == 0 {
		return Mat4{}
	}
	invDet := 1 / det

	r00 := (a11*a22 - a12*a21) * invDet
	r01 := (a02*a21 - a01*a22) * invDet
	r02 := (a01*a12 - a02*a11) * invDet
	r10 := (a12*a20 - a10*a22) * invDet
	r11 := (a00*a22 - a02*a20) * invDet
	r12 := (a02*a10 - a00*a12) * invDet
	r20 := (a10*a21 - a11*a20) * invDet
	r21 := (a01*a20 - a00*a21) * invDet
	r22 := (a00*a11 - a01*a10) * invDet

	itx := -(r00*tx + r01*ty + r02*tz)
	ity := -(r10*tx + r11*ty + r12*tz)
	itz := -(r20*tx + r21*ty + r22*tz)

	return Mat4{
		r00, r10, r20, 0,
		r01, r11, r21, 0,
		r02, r12, r22, 0,
		itx, ity, itz, 1,
	}
}
