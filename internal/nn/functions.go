package nn

import (
	"fmt"
	"math"
)

// SigmoidSpread bounds the logistic argument so the exponent never overflows
// and the result stays strictly inside (0, 1).
const SigmoidSpread = 30.0

// Sigmoid is the logistic function 1/(1+e^-x) with a saturated argument.
func Sigmoid(x float64) float64 {
	x = SaturationWithSpread(x, SigmoidSpread)
	return 1.0 / (1.0 + math.Exp(-x))
}

// SaturationWithSpread clamps values to the symmetric range [-spread, spread].
func SaturationWithSpread(value, spread float64) float64 {
	if spread < 0 {
		spread = -spread
	}
	if value > spread {
		return spread
	}
	if value < -spread {
		return -spread
	}
	return value
}

// AppendBias returns a copy of values with the constant bias activation 1.0
// appended. The caller's slice is never modified.
func AppendBias(values []float64) []float64 {
	out := make([]float64, len(values), len(values)+1)
	copy(out, values)
	return append(out, 1.0)
}

// Avg returns the arithmetic mean of values.
func Avg(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values)), nil
}

// Std returns population standard deviation.
func Std(values []float64) (float64, error) {
	mean, err := Avg(values)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, value := range values {
		diff := mean - value
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values))), nil
}

func Distance(vector1, vector2 []float64) (float64, error) {
	if len(vector1) != len(vector2) {
		return 0, fmt.Errorf("vector length mismatch: %d != %d", len(vector1), len(vector2))
	}
	acc := 0.0
	for i := range vector1 {
		d := vector2[i] - vector1[i]
		acc += d * d
	}
	return math.Sqrt(acc), nil
}

func SquaredError(target, actual []float64) (float64, error) {
	if len(target) != len(actual) {
		return 0, fmt.Errorf("vector length mismatch: %d != %d", len(target), len(actual))
	}
	acc := 0.0
	for i := range target {
		d := target[i] - actual[i]
		acc += d * d
	}
	return acc, nil
}

// Hamming counts positions where the two sequences differ.
func Hamming[T comparable](a, b []T) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("sequence length mismatch: %d != %d", len(a), len(b))
	}
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n, nil
}
