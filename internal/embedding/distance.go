package embedding

import "math"

// maxDistance is reported for vectors that cannot be compared.
const maxDistance = 2.0

// CosineDistance returns 1 minus the cosine similarity of a and b, from 0 for
// the same direction to 2 for opposite ones. Vectors of different length and
// empty or zero vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return maxDistance
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return maxDistance
	}
	cos := dot(a, b) / (na * nb)
	return 1 - math.Max(-1, math.Min(1, cos))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
