//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/lomavkin/annotai/avutil"
)

// FrameSnapshot is one sampled still frame. The RGB24 pixel buffer and raw
// JPEG bytes are intermediate products and are not retained.
type FrameSnapshot struct {
	// PTS is the frame's presentation time in seconds from container start.
	PTS float64

	// DataURI is the frame encoded as data:image/jpeg;base64,<data>.
	DataURI string
}

const dataURIPrefix = "data:image/jpeg;base64,"

// snapshotFrame converts an RGB24 frame into a JPEG data-URI snapshot.
// The raw JPEG bytes are returned alongside for optional dumping to disk.
func snapshotFrame(frame avutil.Frame, pts float64) (FrameSnapshot, []byte, error) {
	img, err := rgbFrameImage(frame)
	if err != nil {
		return FrameSnapshot{}, nil, fmt.Errorf("annotai: building pixel buffer: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		return FrameSnapshot{}, nil, fmt.Errorf("annotai: encoding jpeg: %w", err)
	}

	snap := FrameSnapshot{
		PTS:     pts,
		DataURI: dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
	return snap, buf.Bytes(), nil
}

// rgbFrameImage copies an RGB24 frame's single plane into an image.RGBA,
// honoring the frame's line stride (rows may carry alignment padding).
func rgbFrameImage(frame avutil.Frame) (*image.RGBA, error) {
	if frame == nil {
		return nil, errors.New("nil frame")
	}

	width := int(avutil.GetFrameWidth(frame))
	height := int(avutil.GetFrameHeight(frame))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}

	data := avutil.GetFrameDataPlane(frame, 0)
	if data == nil {
		return nil, errors.New("frame has no pixel data")
	}
	stride := int(avutil.GetFrameLinesizePlane(frame, 0))
	if stride < width*3 {
		return nil, fmt.Errorf("frame stride %d too small for width %d", stride, width)
	}

	src := unsafe.Slice((*byte)(data), stride*height)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := src[y*stride : y*stride+width*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			dst[x*4+0] = row[x*3+0]
			dst[x*4+1] = row[x*3+1]
			dst[x*4+2] = row[x*3+2]
			dst[x*4+3] = 0xFF
		}
	}
	return img, nil
}

// dumpJPEG writes one captured JPEG to <dir>/frame_%04d.jpg.
func dumpJPEG(dir string, index int, data []byte) error {
	name := filepath.Join(dir, fmt.Sprintf("frame_%04d.jpg", index))
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("annotai: writing frame dump: %w", err)
	}
	return nil
}
