package imgmetrics

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/nfnt/resize"
)

// maxFrameEdge caps the longest edge of a decoded frame before pixel scans.
// Metrics are statistical, so downscaling large inputs bounds cost without
// changing the signal meaningfully.
const maxFrameEdge = 1024

// Source supplies the image attached to a prediction.
type Source interface {
	decode() (image.Image, error)
}

type fileSource struct {
	path string
}

func (s fileSource) decode() (image.Image, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", s.path, err)
	}
	return img, nil
}

type imageSource struct {
	img image.Image
}

func (s imageSource) decode() (image.Image, error) {
	if s.img == nil {
		return nil, fmt.Errorf("nil image")
	}
	return s.img, nil
}

// FromFile returns a Source that decodes the image file at path.
func FromFile(path string) Source {
	return fileSource{path: path}
}

// FromImage returns a Source wrapping an already decoded image.
func FromImage(img image.Image) Source {
	return imageSource{img: img}
}

// Frame is a decoded image prepared for metric computation. Orientation and
// bbox-ratio use the original dimensions; pixel statistics run over a frame
// downscaled to at most maxFrameEdge on the longest side.
type Frame struct {
	img            image.Image
	origW, origH   int
	gray           []float64 // lazily built grayscale plane
	grayW, grayH   int
	chanSum        float64 // lazily built channel statistics
	chanSqSum      float64
	chanCount      int
	chanStatsReady bool
}

// NewFrame decodes src into a Frame.
func NewFrame(src Source) (*Frame, error) {
	if src == nil {
		return nil, fmt.Errorf("nil image source")
	}
	img, err := src.decode()
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return nil, fmt.Errorf("empty image (%dx%d)", origW, origH)
	}

	if origW > maxFrameEdge || origH > maxFrameEdge {
		img = resize.Thumbnail(maxFrameEdge, maxFrameEdge, img, resize.Bilinear)
	}

	return &Frame{img: img, origW: origW, origH: origH}, nil
}

// Width returns the original image width in pixels.
func (f *Frame) Width() int { return f.origW }

// Height returns the original image height in pixels.
func (f *Frame) Height() int { return f.origH }

// Contrast is the standard deviation of 8-bit channel values.
func (f *Frame) Contrast() float64 {
	f.buildChannelStats()
	if f.chanCount == 0 {
		return 0
	}
	n := float64(f.chanCount)
	mean := f.chanSum / n
	variance := f.chanSqSum/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Brightness is the mean of 8-bit channel values.
func (f *Frame) Brightness() float64 {
	f.buildChannelStats()
	if f.chanCount == 0 {
		return 0
	}
	return f.chanSum / float64(f.chanCount)
}

// Blur is the variance of a 3x3 Laplacian over the grayscale plane.
// Sharp images score high, blurry images score near zero.
func (f *Frame) Blur() float64 {
	f.buildGray()
	w, h := f.grayW, f.grayH
	if w < 3 || h < 3 {
		return 0
	}

	var sum, sqSum float64
	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := f.gray[y*w+x]
			lap := f.gray[(y-1)*w+x] + f.gray[(y+1)*w+x] +
				f.gray[y*w+x-1] + f.gray[y*w+x+1] - 4*c
			sum += lap
			sqSum += lap * lap
			count++
		}
	}

	n := float64(count)
	mean := sum / n
	variance := sqSum/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return variance
}

// Orientation encodes the aspect of the original image:
// 0 portrait, 1 landscape, 0.5 square.
func (f *Frame) Orientation() float64 {
	switch {
	case f.origH > f.origW:
		return 0.0
	case f.origW > f.origH:
		return 1.0
	default:
		return 0.5
	}
}

func (f *Frame) buildChannelStats() {
	if f.chanStatsReady {
		return
	}
	bounds := f.img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := f.img.At(x, y).RGBA()
			for _, c := range [3]uint32{r, g, b} {
				v := float64(c >> 8)
				f.chanSum += v
				f.chanSqSum += v * v
				f.chanCount++
			}
		}
	}
	f.chanStatsReady = true
}

func (f *Frame) buildGray() {
	if f.gray != nil {
		return
	}
	bounds := f.img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	f.grayW, f.grayH = w, h
	f.gray = make([]float64, w*h)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := f.img.At(x, y).RGBA()
			// ITU-R BT.601 luma weights over 8-bit channels.
			f.gray[i] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			i++
		}
	}
}
