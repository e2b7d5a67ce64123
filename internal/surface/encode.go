package surface

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrNoImage is returned when asked to encode a missing image.
var ErrNoImage = errors.New("no image to encode")

// DefaultJPEGQuality is used by the MJPEG stream.
const DefaultJPEGQuality = 85

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img *image.RGBA, quality int) ([]byte, error) {
	return encode(img, gocv.JPEGFileExt, []int{gocv.IMWriteJpegQuality, quality})
}

// EncodePNG encodes img as PNG.
func EncodePNG(img *image.RGBA) ([]byte, error) {
	return encode(img, gocv.PNGFileExt, nil)
}

func encode(img *image.RGBA, ext gocv.FileExt, params []int) ([]byte, error) {
	if img == nil || img.Rect.Empty() {
		return nil, ErrNoImage
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(ext, mat, params)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ext, err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
