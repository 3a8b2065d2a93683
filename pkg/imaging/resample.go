// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package imaging

import (
	"context"
	"image"
	"image/jpeg"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/image/draw"
)

// DefaultQuality is the JPEG quality used when Resampler.Quality is unset.
const DefaultQuality = 90

// 🖌️ Resampler is the default Transformer. It decodes the source, scales it into
// the box with a Catmull-Rom kernel and re-encodes it as an 8-bit JPEG. The tone
// curve is linear with a gain of 1.0.
type Resampler struct {
	Quality int
}

// 🏭 NewResampler creates a resampler encoding at the given quality
func NewResampler(quality int) *Resampler {
	return &Resampler{Quality: quality}
}

var _ Transformer = (*Resampler)(nil)

// 🏃 Transform implements Transformer
func (r *Resampler) Transform(ctx context.Context, src, dst string, box Box) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, errors.Errorf("opening source: %w", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, errors.Errorf("decoding jpeg: %w", err)
	}

	res := &Result{}
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		res.CapturedAt = captureTime(ctx, f)
	}

	bounds := img.Bounds()
	res.Width, res.Height = box.Fit(bounds.Dx(), bounds.Dy())

	out := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	if res.Width == bounds.Dx() && res.Height == bounds.Dy() {
		draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(out, out.Bounds(), img, bounds, draw.Src, nil)
	}

	if err := r.writeAtomic(dst, out); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("src", src).
		Str("dst", dst).
		Int("width", res.Width).
		Int("height", res.Height).
		Msg("wrote derived image")

	return res, nil
}

func (r *Resampler) writeAtomic(dst string, img image.Image) error {
	quality := r.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: quality}); err != nil {
		out.Close()
		os.Remove(tmp)
		return errors.Errorf("encoding jpeg: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return errors.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func captureTime(ctx context.Context, r io.Reader) (t time.Time) {
	x, err := exif.Decode(r)
	if err != nil {
		zerolog.Ctx(ctx).Trace().Err(err).Msg("no exif metadata")
		return t
	}
	t, err = x.DateTime()
	if err != nil {
		zerolog.Ctx(ctx).Trace().Err(err).Msg("no exif timestamp")
	}
	return t
}
