package mat

import "testing"

func TestMul(t *testing.T) {
	m0 := Translate(0.1, 0.2, 0.3)
	m1 := Scale(1.1, 1.2, 1.3)
	m2 := Rotate(1, 0, 0, 0.1)
	m3 := Rotate(0, 1, 0, 0.1)
	m4 := Rotate(0, 0, 1, 0.1)

	r := m0.MulAffine(m1).MulAffine(m2).MulAffine(m3).MulAffine(m4)
	rNaive := m0.Mul(m1).Mul(m2).Mul(m3).Mul(m4)

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			a := j*4 + i
			diff := r[a] - rNaive[a]
			if diff < -0.01 || 0.01 < diff {
				t.Errorf("m(%d, %d) expected to be %0.3f, got %0.3f", i, j, rNaive[a], r[a])
			}
		}
	}
}

func TestInvAffine(t *testing.T) {
	m0 := Translate(0.1, 0.2, 0.3)
	m1 := Scale(1.1, 1.2, 1.3)
	m2 := Rotate(1, 0, 0, 0.5)

	m := m0.MulAffine(m1).MulAffine(m2)
	mi := m.InvAffine()

	diag := m.Mul(mi)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				if diag[4*i+j] < 0.99 || 1.01 < diag[4*i+j] {
					t.Errorf("m(%d, %d): %0.3f", i, j, diag[4*i+j])
				}
			} else {
				if diag[4*i+j] < -0.01 || 0.01 < diag[4*i+j] {
					t.Errorf("m(%d, %d): %0.3f", i, j, diag[4*i+j])
				}
			}
		}
	}
}

func TestInv(t *testing.T) {
	m := Perspective(1.0, 1.5, 0.1, 100).Mul(Translate(1, 2, 3))
	mi := m.Inv()
	prod := m.Mul(mi)
	id := Identity()
	for i := range prod {
		diff := prod[i] - id[i]
		if diff < -1e-3 || 1e-3 < diff {
			t.Errorf("m*mInv[%d] expected %0.3f, got %0.3f", i, id[i], prod[i])
		}
	}
}

func TestQuaternionRotate(t *testing.T) {
	q := NewQuaternion(0.7071068, 0, 0, 0.7071068) // 90deg about Z
	v := q.Rotate(NewVec3(1, 0, 0))
	expected := NewVec3(0, 1, 0)
	for i := range v {
		if diff := v[i] - expected[i]; diff < -1e-3 || 1e-3 < diff {
			t.Errorf("component %d expected %0.3f, got %0.3f", i, expected[i], v[i])
		}
	}
}
