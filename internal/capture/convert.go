package capture

import (
	"errors"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when asked to convert a missing or empty frame.
var ErrEmptyFrame = errors.New("frame is empty")

// MirroredRGBA converts a BGR camera frame into the horizontally mirrored
// RGBA image the overlay is composited on, resized by scale. dst is reused
// when its bounds already match.
func MirroredRGBA(src *gocv.Mat, scale float64, dst *image.RGBA) (*image.RGBA, error) {
	if src == nil || src.Empty() {
		return nil, ErrEmptyFrame
	}

	flipped := gocv.NewMat()
	defer flipped.Close()
	gocv.Flip(*src, &flipped, 1)

	cur := flipped
	if scale > 0 && scale != 1 {
		resized := gocv.NewMat()
		defer resized.Close()
		size := image.Pt(
			int(math.Round(float64(src.Cols())*scale)),
			int(math.Round(float64(src.Rows())*scale)),
		)
		gocv.Resize(flipped, &resized, size, 0, 0, gocv.InterpolationLinear)
		cur = resized
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	switch cur.Channels() {
	case 1:
		gocv.CvtColor(cur, &rgba, gocv.ColorGrayToRGBA)
	case 4:
		gocv.CvtColor(cur, &rgba, gocv.ColorBGRAToRGBA)
	default:
		gocv.CvtColor(cur, &rgba, gocv.ColorBGRToRGBA)
	}

	data, err := rgba.DataPtrUint8()
	if err != nil {
		return nil, err
	}

	w, h := rgba.Cols(), rgba.Rows()
	if dst == nil || dst.Rect.Dx() != w || dst.Rect.Dy() != h {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	copy(dst.Pix, data)
	return dst, nil
}
