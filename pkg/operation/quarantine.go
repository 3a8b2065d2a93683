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
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/hdrpack/pkg/imaging"
	"github.com/walteh/hdrpack/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// 📦 Move records an original relocated into a quarantine folder
type Move struct {
	From string
	To   string
}

// 📊 ArchivalReport summarises an archival run
type ArchivalReport struct {
	Moved    []Move
	Skipped  []string
	Failures []*ItemError
}

// 🗄️ Archive moves every original JPEG below root whose derived file exists into
// an HDR folder next to it. Directories are read before their entries are
// handled, so an HDR folder created during this pass is not descended into;
// one that already existed is walked like any other directory.
func (p *Pipeline) Archive(ctx context.Context, root string) (*ArchivalReport, error) {
	report := &ArchivalReport{}
	onErr := p.recoverable(StageArchive, &report.Failures)

	p.log.Recordf(ctx, "Archiving HDR files in %s...", root)

	err := walk.Walk(ctx, root, func(ctx context.Context, n walk.Node) (walk.Action, error) {
		if n.IsDir() {
			p.log.Recordf(ctx, "Archiving HDR files in %s...", n.Path)
			return walk.Continue, nil
		}

		if !imaging.IsJPEG(n.Name) || imaging.IsDerived(n.Name) {
			report.Skipped = append(report.Skipped, n.Path)
			p.log.Recordf(ctx, "Skipping %s", n.Name)
			return walk.Continue, nil
		}

		move, err := p.quarantine(ctx, n)
		if err != nil {
			report.Failures = append(report.Failures, err)
			p.log.Error(ctx, n.Name+" ERROR:", err.Err)
			return walk.Continue, nil
		}
		if move != nil {
			report.Moved = append(report.Moved, *move)
		}
		return walk.Continue, nil
	}, onErr)
	if err != nil {
		return report, errors.Errorf("archiving %s: %w", root, err)
	}

	zerolog.Ctx(ctx).Info().
		Int("moved", len(report.Moved)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failures)).
		Msg("archival complete")

	return report, nil
}

// quarantine moves n into its sibling HDR folder when its derived file exists.
// It returns a nil move when there is nothing to do.
func (p *Pipeline) quarantine(ctx context.Context, n walk.Node) (*Move, *ItemError) {
	fail := func(op string, err error) *ItemError {
		return &ItemError{Stage: StageArchive, Op: op, Path: n.Path, Err: err}
	}

	derived := imaging.DerivedPath(n.Path)
	if _, err := os.Stat(derived); err != nil {
		if os.IsNotExist(err) {
			zerolog.Ctx(ctx).Debug().Str("path", n.Path).Msg("no derived image, leaving original in place")
			return nil, nil
		}
		return nil, fail("stat", errors.Errorf("checking derived file: %w", err))
	}

	dir := filepath.Join(filepath.Dir(n.Path), QuarantineDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fail("mkdir", errors.Errorf("creating %s folder: %w", QuarantineDir, err))
	}

	dst := filepath.Join(dir, n.Name)
	if _, err := os.Lstat(dst); err == nil {
		return nil, fail("rename", errors.Errorf("%s already exists", dst))
	}

	if err := os.Rename(n.Path, dst); err != nil {
		return nil, fail("rename", errors.Errorf("moving original: %w", err))
	}

	p.log.Recordf(ctx, "Moved %s to %s", n.Name, dir)
	return &Move{From: n.Path, To: dst}, nil
}
