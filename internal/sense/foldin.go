// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import "fmt"

// FoldIn averages the weight columns named by idxs and adds the bias when
// it applies. Repeated indices count in both the sum and the divisor, so
// they do not change the result for a single repeated column. Non-finite
// entries in the result are replaced with 0.
//
// The model must already have passed Validate.
func FoldIn(m *FactorModel, idxs []int) ([]float64, error) {
	if len(idxs) == 0 {
		return nil, ErrNoMatchingGenres
	}

	f := m.Factors()
	g := m.Genres()
	acc := make([]float64, f)
	for _, j := range idxs {
		if j < 0 || j >= g {
			return nil, fmt.Errorf("%w: column %d outside [0,%d)", ErrInvalidModel, j, g)
		}
		for i := 0; i < f; i++ {
			acc[i] += m.Weight[i][j]
		}
	}

	k := float64(len(idxs))
	bias := m.HasBias()
	for i := range acc {
		acc[i] /= k
		if bias {
			acc[i] += m.Bias[i]
		}
	}
	return SanitizeVector(acc), nil
}
