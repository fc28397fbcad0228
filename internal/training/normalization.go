package training

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// madToSigma is the standard normal-consistency constant (1/Φ^-1(0.75)),
// the exact constant original_source/src/neural/training/normalization.rs
// uses to turn a median absolute deviation into a sigma-comparable scale.
const madToSigma = 1.4826

// madFloor guards against a degenerate all-identical batch collapsing the
// divisor to zero.
const madFloor = 1e-6

// normalizeRobust implements the clip/median/MAD/clip pipeline of §4.7:
// clip to [-10, 10], subtract the median, divide by madToSigma*MAD (floored),
// clip the result to [-3, 3]. Operates in place on a copy; the input slice
// is never mutated. Grounded on normalization.rs's exact constants (10, 3,
// 1.4826); gonum.org/v1/gonum/stat.Quantile(0.5, ...) supplies the median
// and the median-of-absolute-deviations, since no repo in the example pack
// computes a median directly but gonum is already a direct dependency
// pulled in for exactly this purpose.
func normalizeRobust(values []float32) []float32 {
	clipped := make([]float64, len(values))
	for i, v := range values {
		clipped[i] = float64(clampFloat32(v, -10, 10))
	}

	median := medianOf(clipped)
	deviations := make([]float64, len(clipped))
	for i, v := range clipped {
		d := v - median
		if d < 0 {
			d = -d
		}
		deviations[i] = d
	}
	mad := medianOf(deviations)
	scale := madToSigma * mad
	if scale < madFloor {
		scale = madFloor
	}

	out := make([]float32, len(values))
	for i, v := range clipped {
		out[i] = clampFloat32(float32((v-median)/scale), -3, 3)
	}
	return out
}

// medianOf returns the 0.5 quantile of x; x is sorted internally and left
// untouched by the caller's original slice (a copy is sorted).
func medianOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// normalizeBatch applies normalizeRobust independently per feature channel,
// pooling that channel's values across every board and grid cell in the
// batch: a channel with one outlier board shouldn't distort every other
// channel's scale. 0/1 indicator channels (occupancy, one-hot values) are
// rescaled too: when more than half of a channel's pooled values are equal,
// MAD is 0, madFloor becomes the divisor, and every value other than the
// median is pushed to -3 or 3.
func normalizeBatch(batch []features.Tensor) []features.Tensor {
	if len(batch) == 0 {
		return batch
	}
	out := make([]features.Tensor, len(batch))
	copy(out, batch)

	const cellsPerChannel = game.GridSize * game.GridSize
	pooled := make([]float32, len(batch)*cellsPerChannel)
	for channel := 0; channel < features.NumChannels; channel++ {
		idx := 0
		for _, t := range batch {
			for row := 0; row < game.GridSize; row++ {
				for col := 0; col < game.GridSize; col++ {
					pooled[idx] = t[channel][row][col]
					idx++
				}
			}
		}
		normalized := normalizeRobust(pooled)
		idx = 0
		for b := range out {
			for row := 0; row < game.GridSize; row++ {
				for col := 0; col < game.GridSize; col++ {
					out[b][channel][row][col] = normalized[idx]
					idx++
				}
			}
		}
	}
	return out
}

func clampFloat32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
