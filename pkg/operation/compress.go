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
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/walteh/hdrpack/pkg/archive"
	"github.com/walteh/hdrpack/pkg/match"
	"github.com/walteh/hdrpack/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// 📊 CompressionResult describes a finished archive
type CompressionResult struct {
	Output   string
	Entries  int
	Excluded []string // relative paths skipped by a pattern
	Bytes    int64
}

// 🗜️ Compress streams every file below sourceDir into outputFile, skipping any
// path (and, for directories, its whole subtree) whose root-relative path
// matches one of the exclude patterns or doublestar globs. Any failure aborts
// the whole archive and is returned as a *FatalError.
func (p *Pipeline) Compress(ctx context.Context, sourceDir, outputFile string, excludes, globs []string) (*CompressionResult, error) {
	patterns, err := match.CompileAll(excludes, globs)
	if err != nil {
		return nil, p.compressFailed(ctx, errors.Errorf("compiling exclude patterns: %w", err))
	}

	// the output may live inside the tree it archives
	outAbs, err := filepath.Abs(outputFile)
	if err != nil {
		return nil, p.compressFailed(ctx, errors.Errorf("resolving output path: %w", err))
	}

	sink, err := p.newSink(ctx, outputFile)
	if err != nil {
		return nil, p.compressFailed(ctx, errors.Errorf("opening archive sink: %w", err))
	}

	p.log.Recordf(ctx, "Compressing %s to %s...", sourceDir, outputFile)

	res := &CompressionResult{Output: outputFile}

	err = walk.Walk(ctx, sourceDir, func(ctx context.Context, n walk.Node) (walk.Action, error) {
		if m, ok := patterns.Match(n.Rel); ok {
			res.Excluded = append(res.Excluded, n.Rel)
			p.log.Recordf(ctx, "Excluding %s (%s)", n.Rel, m)
			return walk.SkipSubtree, nil
		}

		if n.IsDir() {
			return walk.Continue, nil
		}

		if abs, err := filepath.Abs(n.Path); err == nil && (abs == outAbs || abs == archive.TempPath(outAbs)) {
			p.log.Warning(ctx, "Skipping archive output", n.Rel)
			return walk.Continue, nil
		}

		if err := sink.Enqueue(ctx, archive.Entry{Source: n.Path, Name: n.Rel}); err != nil {
			return walk.Continue, errors.Errorf("adding %s: %w", n.Rel, err)
		}
		res.Entries++
		return walk.Continue, nil
	}, walk.Abort)
	if err != nil {
		if aerr := sink.Abort(); aerr != nil {
			zerolog.Ctx(ctx).Warn().Err(aerr).Msg("aborting archive sink")
		}
		return nil, p.compressFailed(ctx, err)
	}

	res.Bytes, err = sink.Finalize(ctx)
	if err != nil {
		if aerr := sink.Abort(); aerr != nil {
			zerolog.Ctx(ctx).Warn().Err(aerr).Msg("aborting archive sink")
		}
		return nil, p.compressFailed(ctx, errors.Errorf("finalizing archive: %w", err))
	}

	p.log.Success(ctx, "Archive written successfully.", humanize.Bytes(uint64(res.Bytes)))
	p.log.Recordf(ctx, "%d total bytes", res.Bytes)

	zerolog.Ctx(ctx).Info().
		Str("output", outputFile).
		Int("entries", res.Entries).
		Int("excluded", len(res.Excluded)).
		Int64("bytes", res.Bytes).
		Msg("compression complete")

	return res, nil
}

func (p *Pipeline) compressFailed(ctx context.Context, err error) error {
	p.log.Error(ctx, "Archive error:", err)
	return fatal(StageCompress, err)
}
