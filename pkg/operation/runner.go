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
	"gitlab.com/tozd/go/errors"
)

// 📋 Plan selects the stages a Runner executes and their parameters
type Plan struct {
	Box      imaging.Box
	Output   string   // archive path; compression is skipped when empty
	Excludes []string // exclusion patterns for compression
	Globs    []string // doublestar exclusion globs for compression

	SkipConvert bool
	SkipArchive bool
}

// 📊 Summary collects the reports of every stage that ran
type Summary struct {
	Conversion  *ConversionReport
	Archival    *ArchivalReport
	Compression *CompressionResult
}

// Failures returns every recoverable item error across stages.
func (s *Summary) Failures() []*ItemError {
	var out []*ItemError
	if s.Conversion != nil {
		out = append(out, s.Conversion.Failures...)
	}
	if s.Archival != nil {
		out = append(out, s.Archival.Failures...)
	}
	return out
}

// 🏃 Runner executes the stages in order against a single root
type Runner struct {
	pipeline *Pipeline
}

// 🏗️ NewRunner creates a new runner
func NewRunner(p *Pipeline) *Runner {
	return &Runner{pipeline: p}
}

// 🏃 Run converts, archives and compresses dir, strictly one stage after the
// other. Recoverable failures are reported in the summary; the first stage
// error stops the run.
func (r *Runner) Run(ctx context.Context, dir string, plan Plan) (*Summary, error) {
	logger := zerolog.Ctx(ctx)
	summary := &Summary{}

	if !plan.SkipConvert {
		logger.Debug().Str("dir", dir).Msg("running conversion stage")
		report, err := r.pipeline.Convert(ctx, dir, plan.Box)
		summary.Conversion = report
		if err != nil {
			return summary, errors.Errorf("converting: %w", err)
		}
	}

	if !plan.SkipArchive {
		logger.Debug().Str("dir", dir).Msg("running archival stage")
		report, err := r.pipeline.Archive(ctx, dir)
		summary.Archival = report
		if err != nil {
			return summary, errors.Errorf("archiving: %w", err)
		}
	}

	if plan.Output != "" {
		logger.Debug().Str("dir", dir).Str("output", plan.Output).Msg("running compression stage")
		res, err := r.pipeline.Compress(ctx, dir, plan.Output, plan.Excludes, plan.Globs)
		summary.Compression = res
		if err != nil {
			return summary, errors.Errorf("compressing: %w", err)
		}
	}

	return summary, nil
}
