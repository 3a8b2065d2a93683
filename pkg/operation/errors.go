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
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Stage names a pipeline phase
type Stage string

const (
	StageConvert  Stage = "convert"
	StageArchive  Stage = "archive"
	StageCompress Stage = "compress"
)

// ⚠️ ItemError is a recoverable failure on a single path. It is logged and
// collected in the stage report; the stage keeps going.
type ItemError struct {
	Stage Stage
	Op    string // stat, list, transform, mkdir, rename
	Path  string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Stage, e.Op, e.Path, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// 💥 FatalError aborts a whole stage. Only compression produces one for
// per-item failures, since a truncated archive is useless.
type FatalError struct {
	Stage Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func fatal(stage Stage, err error) error {
	return &FatalError{Stage: stage, Err: err}
}

// IsFatal reports whether err aborted a stage.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
