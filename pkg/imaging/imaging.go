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
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// JPEGExt is the extension of source images, matched case-insensitively.
	JPEGExt = ".jpg"
	// DerivedSuffix replaces JPEGExt on a derived file.
	DerivedSuffix = ".sdr.jpg"
)

var jpgSuffix = regexp.MustCompile(`(?i)\.jpg$`)

// 🔄 DerivedPath maps a source JPEG to its derived sibling. It is not idempotent:
// applying it to a derived path yields a ".sdr.sdr.jpg" path.
func DerivedPath(path string) string {
	return jpgSuffix.ReplaceAllLiteralString(path, DerivedSuffix)
}

// IsJPEG reports whether name has a .jpg extension in any case.
func IsJPEG(name string) bool {
	return strings.EqualFold(filepath.Ext(name), JPEGExt)
}

// IsDerived reports whether name already carries the derived suffix.
func IsDerived(name string) bool {
	return len(name) >= len(DerivedSuffix) &&
		strings.EqualFold(name[len(name)-len(DerivedSuffix):], DerivedSuffix)
}

// 📐 Box is a target bounding box. A zero dimension is unset.
type Box struct {
	Width  int
	Height int
}

// IsZero reports whether neither dimension is set.
func (b Box) IsZero() bool {
	return b.Width <= 0 && b.Height <= 0
}

// Fit returns the size of a w×h image scaled to fit inside the box while keeping
// its aspect ratio. Images are never enlarged.
func (b Box) Fit(w, h int) (int, int) {
	if b.IsZero() || w <= 0 || h <= 0 {
		return w, h
	}

	scale := math.Inf(1)
	if b.Width > 0 {
		scale = math.Min(scale, float64(b.Width)/float64(w))
	}
	if b.Height > 0 {
		scale = math.Min(scale, float64(b.Height)/float64(h))
	}
	if scale >= 1 {
		return w, h
	}

	fw := max(1, int(math.Round(float64(w)*scale)))
	fh := max(1, int(math.Round(float64(h)*scale)))
	return fw, fh
}

// 🖼️ Result describes a written derived image
type Result struct {
	Width      int
	Height     int
	CapturedAt time.Time // zero when the source carries no EXIF timestamp
}

// 🎨 Transformer writes a tone-mapped, size-limited copy of src to dst
type Transformer interface {
	Transform(ctx context.Context, src, dst string, box Box) (*Result, error)
}
