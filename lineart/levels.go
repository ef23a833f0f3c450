package lineart

import (
	"image"
	"log"
	"math"
)

// Median returns the median gray value of img, found by walking a
// 256 bucket histogram until the running count crosses half the pixel
// count. It returns -1 for an empty image.
func Median(img *image.Gray) int {
	var hist [256]int
	r := img.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
		}
	}
	t := float64(r.Dx()*r.Dy()) / 2
	total := 0.
	for v, n := range hist {
		if total <= t && total+float64(n) >= t && n > 0 {
			return v
		}
		total += float64(n)
	}
	return -1
}

// Levels returns a copy of img with every pixel v replaced by
// alpha*v + beta, rounded and saturated to [0, 255].
func Levels(img *image.Gray, alpha float64, beta int) *image.Gray {
	r := img.Bounds()
	dst := image.NewGray(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := alpha*float64(img.GrayAt(x, y).Y) + float64(beta)
			v = math.Round(v)
			dst.Pix[dst.PixOffset(x, y)] = uint8(max(0, min(255, v)))
		}
	}
	return dst
}

// Auto-leveling parameters.
const (
	MedianLow     = 55
	MedianHigh    = 200
	maxLevelIters = 25
	betaStep      = 5
	betaMax       = 25
	alphaStep     = 0.2
)

// AutoLevels searches for a gain (alpha) and offset (beta) that bring
// the median of img into [MedianLow, MedianHigh]. Dark images first get
// their offset raised in steps of 5 up to 25, then their gain raised by
// 0.2 with the offset reset; bright images are treated symmetrically.
// When the band is not reached within the iteration cap, the pair whose
// median came closest is returned.
func AutoLevels(img *image.Gray) (alpha float64, beta int) {
	alpha, beta = 1, 0
	best := Median(img)
	bestAlpha, bestBeta := alpha, beta
	for iters := 0; best < MedianLow || best > MedianHigh; {
		m := Median(Levels(img, alpha, beta))
		switch {
		case m < MedianLow:
			if m > best {
				best, bestAlpha, bestBeta = m, alpha, beta
			}
			if beta < betaMax {
				beta += betaStep
			} else {
				alpha += alphaStep
				beta = 0
			}
		case m > MedianHigh:
			if m < best {
				best, bestAlpha, bestBeta = m, alpha, beta
			}
			if beta > 0 {
				beta -= betaStep
			} else {
				alpha -= alphaStep
				beta = betaMax
			}
		default:
			return alpha, beta
		}
		iters++
		if iters > maxLevelIters {
			log.Printf("lineart: using best levels alpha=%.1f beta=%d (median %d)", bestAlpha, bestBeta, best)
			return bestAlpha, bestBeta
		}
	}
	return alpha, beta
}
