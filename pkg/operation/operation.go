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

	"github.com/walteh/hdrpack/pkg/archive"
	"github.com/walteh/hdrpack/pkg/imaging"
	"github.com/walteh/hdrpack/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// QuarantineDir is the folder originals are moved into once their derived
// counterpart exists.
const QuarantineDir = "HDR"

// SinkFactory opens an archive sink bound to an output file.
type SinkFactory func(ctx context.Context, path string) (archive.Writer, error)

// ZipSink is the default SinkFactory.
func ZipSink(ctx context.Context, path string) (archive.Writer, error) {
	return archive.NewZipWriter(ctx, path)
}

// 🔧 Options contains configuration for the pipeline
type Options struct {
	// Log receives every pipeline event
	Log *log.Logger
	// Transformer produces derived images
	Transformer imaging.Transformer
	// NewSink opens the compression sink, ZipSink when nil
	NewSink SinkFactory
	// SkipDerived stops conversion from collecting files that already end in
	// the derived suffix
	SkipDerived bool
}

// 🎮 Pipeline runs the conversion, archival and compression stages against a
// directory tree. Stages hold no state between calls.
type Pipeline struct {
	log         *log.Logger
	transformer imaging.Transformer
	newSink     SinkFactory
	skipDerived bool
}

// 🏭 New creates a new pipeline with the given options
func New(opts Options) (*Pipeline, error) {
	if opts.Log == nil {
		return nil, errors.Errorf("log is required")
	}
	if opts.Transformer == nil {
		return nil, errors.Errorf("transformer is required")
	}
	if opts.NewSink == nil {
		opts.NewSink = ZipSink
	}
	return &Pipeline{
		log:         opts.Log,
		transformer: opts.Transformer,
		newSink:     opts.NewSink,
		skipDerived: opts.SkipDerived,
	}, nil
}
