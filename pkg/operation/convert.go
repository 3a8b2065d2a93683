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

package operation

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/hdrpack/pkg/imaging"
	"github.com/walteh/hdrpack/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// 🖼️ ConversionResult is the outcome for a single source image
type ConversionResult struct {
	Source  string
	Derived string
	Image   *imaging.Result // nil on failure
	Err     error
}

func (r ConversionResult) Succeeded() bool {
	return r.Err == nil
}

// 📊 ConversionReport summarises a conversion run
type ConversionReport struct {
	Results  []ConversionResult
	Failures []*ItemError
}

// Converted returns the number of images written.
func (r *ConversionReport) Converted() int {
	n := 0
	for _, res := range r.Results {
		if res.Succeeded() {
			n++
		}
	}
	return n
}

// 🔍 FindJPEGs returns every .jpg file below root in traversal order. Entries
// that cannot be read are returned as item errors.
func (p *Pipeline) FindJPEGs(ctx context.Context, root string) ([]string, []*ItemError, error) {
	var files []string
	var failures []*ItemError

	err := walk.Walk(ctx, root, func(ctx context.Context, n walk.Node) (walk.Action, error) {
		if n.IsDir() || !imaging.IsJPEG(n.Name) {
			return walk.Continue, nil
		}
		if p.skipDerived && imaging.IsDerived(n.Name) {
			zerolog.Ctx(ctx).Debug().Str("path", n.Path).Msg("skipping derived image")
			return walk.Continue, nil
		}
		files = append(files, n.Path)
		return walk.Continue, nil
	}, p.recoverable(StageConvert, &failures))
	if err != nil {
		return nil, failures, errors.Errorf("finding jpeg files: %w", err)
	}

	return files, failures, nil
}

// 🏃 Convert writes a derived image next to every JPEG below root. Images are
// processed one at a time in traversal order; a failed transform is logged and
// the remaining images are still processed.
func (p *Pipeline) Convert(ctx context.Context, root string, box imaging.Box) (*ConversionReport, error) {
	files, failures, err := p.FindJPEGs(ctx, root)
	if err != nil {
		return nil, err
	}

	report := &ConversionReport{Failures: failures}

	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return report, errors.Errorf("converting %s: %w", root, err)
		}
		report.Results = append(report.Results, p.convertOne(ctx, src, box))
	}

	for _, res := range report.Results {
		if res.Err != nil {
			report.Failures = append(report.Failures, &ItemError{Stage: StageConvert, Op: "transform", Path: res.Source, Err: res.Err})
		}
	}

	p.log.Record(ctx, "All files have been processed.")
	zerolog.Ctx(ctx).Info().
		Int("found", len(files)).
		Int("converted", report.Converted()).
		Int("failed", len(report.Failures)).
		Msg("conversion complete")

	return report, nil
}

func (p *Pipeline) convertOne(ctx context.Context, src string, box imaging.Box) ConversionResult {
	res := ConversionResult{Source: src, Derived: imaging.DerivedPath(src)}

	p.log.Recordf(ctx, "Converting %s to SDR...", src)

	img, err := p.transformer.Transform(ctx, src, res.Derived, box)
	if err != nil {
		res.Err = err
		p.log.Error(ctx, "Error:", err)
		return res
	}
	res.Image = img

	if img != nil && !img.CapturedAt.IsZero() {
		p.log.Success(ctx, "Converted.", img.CapturedAt.Format("2006-01-02 15:04:05"))
	} else {
		p.log.Success(ctx, "Converted.")
	}
	return res
}

// recoverable returns a walk.ErrorFunc that logs and collects per-entry errors
// and lets the walk continue.
func (p *Pipeline) recoverable(stage Stage, into *[]*ItemError) walk.ErrorFunc {
	return func(ctx context.Context, path string, err error) error {
		*into = append(*into, &ItemError{Stage: stage, Op: "walk", Path: path, Err: err})
		p.log.Error(ctx, path+" ERROR:", err)
		return nil
	}
}
