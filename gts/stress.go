package gts

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

/*
Principal stress state measured at the ISC experiment volume, after
Krietsch et al. (2019): magnitudes of the three principal components in
Pascal, together with the dip and dip direction (degrees) of each
principal axis.
*/
var (
	iscStressMagnitudes = [3]float64{13.1 * Mega * Pascal, 9.2 * Mega * Pascal, 8.7 * Mega * Pascal}
	iscStressDips       = [3]float64{39.21, 47.90, 12.89}
	iscStressDipDirs    = [3]float64{104.48, 259.05, 3.72}
)

// StressTensor returns the in-situ stress tensor of the ISC rock volume in
// the Cartesian site frame (x east, y north, z up), assembled from the
// measured principal magnitudes and orientations. Compression is negative.
func StressTensor() (sigma *mat.SymDense) {
	return PrincipalStress(iscStressMagnitudes, iscStressDips, iscStressDipDirs)
}

// PrincipalStress builds a full stress tensor from three principal stress
// magnitudes (positive in compression) and the dip / dip direction of each
// principal axis, in degrees. The measured axes are never exactly mutually
// orthogonal, so the direction matrix is re-orthogonalized with a QR
// factorization before the tensor is rotated into the Cartesian frame. The
// returned tensor uses the tension-positive sign convention, hence the
// magnitudes enter with a negative sign.
func PrincipalStress(magnitudes, dips, dipDirections [3]float64) (sigma *mat.SymDense) {
	var (
		axes = mat.NewDense(3, 3, nil)
	)
	for i := 0; i < 3; i++ {
		d := DipVector(dips[i], dipDirections[i])
		axes.SetCol(i, d[:])
	}

	var qr mat.QR
	qr.Factorize(axes)
	var q mat.Dense
	qr.QTo(&q)

	// sigma = Q * diag(-m) * Qt, accumulated as rank-one updates so the
	// result is symmetric by construction
	sigma = mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		sigma.SymRankOne(sigma, -magnitudes[i], q.ColView(i))
	}
	return
}

// DipVector converts a (dip, dip direction) pair in degrees into a unit
// vector in the site frame: x east, y north, z up. The vector points down
// the dip, so its z component is non-positive for dips in [0, 90].
func DipVector(dip, dipDirection float64) (v [3]float64) {
	var (
		theta = dip * math.Pi / 180
		phi   = dipDirection * math.Pi / 180
	)
	v[0] = math.Cos(theta) * math.Sin(phi)
	v[1] = math.Cos(theta) * math.Cos(phi)
	v[2] = -math.Sin(theta)
	return
}

// PlaneNormal returns the upward-pointing unit normal of a plane given by
// its dip and dip direction in degrees.
func PlaneNormal(dip, dipDirection float64) (n [3]float64) {
	var (
		theta = dip * math.Pi / 180
		phi   = dipDirection * math.Pi / 180
	)
	n[0] = math.Sin(theta) * math.Sin(phi)
	n[1] = math.Sin(theta) * math.Cos(phi)
	n[2] = math.Cos(theta)
	return
}

// StrikeVector returns the horizontal unit vector along the strike of a
// plane with the given dip direction in degrees. It is orthogonal to both
// the dip vector and the plane normal.
func StrikeVector(dipDirection float64) (s [3]float64) {
	phi := dipDirection * math.Pi / 180
	s[0] = math.Cos(phi)
	s[1] = -math.Sin(phi)
	s[2] = 0
	return
}
