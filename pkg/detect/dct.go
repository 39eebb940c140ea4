package detect

import (
	"math"
	"sort"
)

// acIndex lists the low-frequency AC coefficients kept per block as
// (row, column) frequency pairs.
var acIndex = [][2]int{{0, 1}, {1, 0}, {1, 2}, {2, 1}, {2, 2}, {0, 2}, {2, 0}}

// dctBasis[k][n] is the orthonormal DCT-II basis for an 8-point transform.
var dctBasis = func() [8][8]float64 {
	var b [8][8]float64
	for k := 0; k < 8; k++ {
		alpha := math.Sqrt(2.0 / 8)
		if k == 0 {
			alpha = math.Sqrt(1.0 / 8)
		}
		for n := 0; n < 8; n++ {
			b[k][n] = alpha * math.Cos(math.Pi*float64(2*n+1)*float64(k)/16)
		}
	}
	return b
}()

// dct8x8 returns the orthonormal 2-D DCT-II of one block.
func dct8x8(blk *[8][8]float64) [8][8]float64 {
	var tmp, out [8][8]float64
	for r := 0; r < 8; r++ {
		for k := 0; k < 8; k++ {
			s := 0.0
			for n := 0; n < 8; n++ {
				s += dctBasis[k][n] * blk[r][n]
			}
			tmp[r][k] = s
		}
	}
	for c := 0; c < 8; c++ {
		for k := 0; k < 8; k++ {
			s := 0.0
			for n := 0; n < 8; n++ {
				s += dctBasis[k][n] * tmp[n][c]
			}
			out[k][c] = s
		}
	}
	return out
}

// blockCoefficients transforms every full 8x8 block of g, in row-major block
// order, and returns the DC term and the acIndex coefficients per block.
func blockCoefficients(g *Gray) (dc []float64, ac [][]float64) {
	bw, bh := g.Width/8, g.Height/8
	n := bw * bh
	dc = make([]float64, 0, n)
	ac = make([][]float64, len(acIndex))
	for k := range ac {
		ac[k] = make([]float64, 0, n)
	}

	var blk [8][8]float64
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			for y := 0; y < 8; y++ {
				row := (by*8 + y) * g.Width
				for x := 0; x < 8; x++ {
					blk[y][x] = float64(g.Pix[row+bx*8+x]) - 128
				}
			}
			c := dct8x8(&blk)
			dc = append(dc, c[0][0])
			for k, idx := range acIndex {
				ac[k] = append(ac[k], c[idx[0]][idx[1]])
			}
		}
	}
	return dc, ac
}

// coefficientHistogram clips values to ±maxAbs, rounds half to even and
// counts them into 2*maxAbs+1 unit bins.
func coefficientHistogram(vals []float64, maxAbs int) []float64 {
	hist := make([]float64, 2*maxAbs+1)
	lim := float64(maxAbs)
	for _, v := range vals {
		v = math.Max(-lim, math.Min(lim, v))
		hist[int(math.RoundToEven(v))+maxAbs]++
	}
	return hist
}

var smoothKernel = []float64{1.0 / 9, 2.0 / 9, 3.0 / 9, 2.0 / 9, 1.0 / 9}

// smooth convolves h with a centered kernel, keeping the input length.
func smooth(h, kernel []float64) []float64 {
	half := len(kernel) / 2
	out := make([]float64, len(h))
	for i := range h {
		s := 0.0
		for j, w := range kernel {
			idx := i + half - j
			if idx < 0 || idx >= len(h) {
				continue
			}
			s += h[idx] * w
		}
		out[i] = s
	}
	return out
}

// spectrum returns |DFT| of a real signal for bins 1..n/2, dropping the
// zero-frequency bin.
func spectrum(x []float64) []float64 {
	n := len(x)
	bins := n/2 + 1
	if bins <= 1 {
		return nil
	}
	out := make([]float64, bins-1)
	for k := 1; k < bins; k++ {
		re, im := 0.0, 0.0
		for t, v := range x {
			angle := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			re += v * math.Cos(angle)
			im += v * math.Sin(angle)
		}
		out[k-1] = math.Hypot(re, im)
	}
	return out
}

// median of a copy of vals; even lengths average the two middle values.
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	m := len(s) / 2
	if len(s)%2 == 0 {
		return (s[m-1] + s[m]) / 2
	}
	return s[m]
}

// variance is the population variance.
func variance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	s := 0.0
	for _, v := range vals {
		d := v - mean
		s += d * d
	}
	return s / float64(len(vals))
}
