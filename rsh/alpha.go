package rsh

import "fmt"

// Alpha evaluates the azimuthal factors for a batch of azimuth angles,
// returning row-major [len(alphas)][2·lmax+1] values ordered by ascending
// order, sin multiples below the center column and cos multiples above:
//
//	[√2·sin(lmax·α), …, √2·sin(α), 1, √2·cos(α), …, √2·cos(lmax·α)]
//
// Multiplying a row elementwise against the matching polar factors yields
// finished harmonics; see Combine.
func Alpha(lmax int, alphas []float64) ([]float64, error) {
	if lmax < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDegree, lmax)
	}
	out := make([]float64, len(alphas)*(2*lmax+1))
	BaseAzimuthalBatch(alphas, lmax, out)
	return out, nil
}
