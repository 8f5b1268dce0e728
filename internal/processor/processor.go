package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/image-optimizer/internal/model"
)

// Options holds encoder settings.
type Options struct {
	WebPQuality float32 // lossy quality, 0..100
	JPEGQuality int     // 1..100
}

// DefaultOptions returns the encoder settings used when none are configured.
func DefaultOptions() Options {
	return Options{WebPQuality: 80, JPEGQuality: 85}
}

// Processor turns a source image into its planned variants.
type Processor struct {
	opts Options
}

// New creates a new Processor with the given encoder options.
func New(opts Options) *Processor {
	if opts.WebPQuality <= 0 || opts.WebPQuality > 100 {
		opts.WebPQuality = DefaultOptions().WebPQuality
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultOptions().JPEGQuality
	}

	return &Processor{opts: opts}
}

// Transcode decodes data once and encodes every variant of the plan concurrently.
// The returned slice follows plan order. Any failure aborts the whole batch.
// Pixels are used as stored; EXIF orientation is ignored so widths match the
// ones the upload was validated against.
func (p *Processor) Transcode(ctx context.Context, basename string, data []byte, plan model.Plan) ([]model.EncodedVariant, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	out := make([]model.EncodedVariant, len(plan))

	g, ctx := errgroup.WithContext(ctx)
	for i, v := range plan {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			encoded, err := p.Encode(src, v)
			if err != nil {
				return fmt.Errorf("failed to encode %s variant %s: %w", v.Format, v.Label(), err)
			}

			out[i] = model.EncodedVariant{
				Variant: v,
				Name:    v.EntryName(basename),
				Data:    encoded,
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// Encode resizes src to the variant width, keeping the aspect ratio, and encodes it.
// Width 0 re-encodes at the original resolution. src is never modified.
func (p *Processor) Encode(src image.Image, v model.Variant) ([]byte, error) {
	img := src
	if v.Width > 0 && v.Width != src.Bounds().Dx() {
		img = imaging.Resize(src, v.Width, 0, imaging.Lanczos)
	}

	buf := bytes.NewBuffer(nil)

	switch v.Format {
	case model.FormatWebP:
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, p.opts.WebPQuality)
		if err != nil {
			return nil, fmt.Errorf("webp options: %w", err)
		}
		if err := webp.Encode(buf, img, options); err != nil {
			return nil, fmt.Errorf("webp encode: %w", err)
		}
	case model.FormatPNG:
		if err := imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return nil, fmt.Errorf("png encode: %w", err)
		}
	case model.FormatJPEG:
		if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(p.opts.JPEGQuality)); err != nil {
			return nil, fmt.Errorf("jpeg encode: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format: %s", v.Format)
	}

	return buf.Bytes(), nil
}
