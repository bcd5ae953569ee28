package effect

import (
	"image"

	"gocv.io/x/gocv"
)

// MaskThreshold is the foreground probability above which a pixel counts as
// part of the person.
const MaskThreshold = 0.4

// Compose produces the output frame for one iteration.
//
// Without a background, or at full opacity, the frame passes through
// unchanged. Otherwise the result is Blend(frame, background, mask, alpha).
// The caller owns the returned Mat.
func Compose(frame gocv.Mat, background *gocv.Mat, mask *gocv.Mat, alpha float64) gocv.Mat {
	if background == nil || background.Empty() || alpha >= 1 {
		return frame.Clone()
	}
	return Blend(frame, *background, mask, alpha)
}

// Blend cross-dissolves frame into background by alpha and shows the result
// only where mask marks the person (mask > MaskThreshold). Everywhere else,
// and everywhere when mask is nil, the background is shown as is.
func Blend(frame gocv.Mat, background gocv.Mat, mask *gocv.Mat, alpha float64) gocv.Mat {
	alpha = clamp01(alpha)

	out := background.Clone()
	if mask == nil || mask.Empty() {
		return out
	}

	blended := gocv.NewMat()
	defer blended.Close()
	gocv.AddWeighted(frame, alpha, background, 1-alpha, 0, &blended)

	person := foreground(*mask, frame.Cols(), frame.Rows())
	defer person.Close()

	blended.CopyToWithMask(&out, person)
	return out
}

// foreground turns a float probability mask into an 8-bit binary mask
// of the given size.
func foreground(mask gocv.Mat, width, height int) gocv.Mat {
	src := mask
	if mask.Cols() != width || mask.Rows() != height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mask, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
		src = resized
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(src, &binary, MaskThreshold, 255, gocv.ThresholdBinary)

	out := gocv.NewMat()
	binary.ConvertTo(&out, gocv.MatTypeCV8U)
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
