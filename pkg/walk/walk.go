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

// Package walk provides the depth-first directory traversal shared by every stage.
package walk

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📂 Kind is the type of a visited node
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// 📄 Node is a single entry produced during traversal
type Node struct {
	Path    string // Absolute (or root-joined) path on disk
	Rel     string // Slash-separated path relative to the walk root
	Name    string // Base name
	Kind    Kind
	Symlink bool // Entry is a symlink; symlinked directories are never descended
}

func (n Node) IsDir() bool {
	return n.Kind == KindDir
}

// 🚦 Action tells the walker what to do after a visit
type Action int

const (
	Continue Action = iota
	SkipSubtree
)

// VisitFunc is called for every entry below the root. An error returned from it
// aborts the walk and is returned unchanged.
type VisitFunc func(ctx context.Context, n Node) (Action, error)

// ErrorFunc receives per-entry stat and list failures. Returning nil continues
// with the remaining siblings; returning an error aborts the walk.
type ErrorFunc func(ctx context.Context, path string, err error) error

// Abort is an ErrorFunc that stops the walk on the first failure.
func Abort(_ context.Context, _ string, err error) error {
	return err
}

// 🚶 Walk traverses root depth-first. Each directory's listing is read before any
// of its entries are visited, and a subdirectory is fully expanded before its
// next sibling. The root itself is not visited.
func Walk(ctx context.Context, root string, visit VisitFunc, onErr ErrorFunc) error {
	if onErr == nil {
		onErr = Abort
	}

	info, err := os.Stat(root)
	if err != nil {
		return errors.Errorf("reading root %s: %w", root, err)
	}
	if !info.IsDir() {
		return errors.Errorf("root %s is not a directory", root)
	}

	return walkDir(ctx, root, "", visit, onErr)
}

func walkDir(ctx context.Context, dir, rel string, visit VisitFunc, onErr ErrorFunc) error {
	zerolog.Ctx(ctx).Trace().Str("dir", dir).Msg("listing directory")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return onErr(ctx, dir, errors.Errorf("listing directory: %w", err))
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("walking %s: %w", dir, err)
		}

		n, err := newNode(dir, rel, entry)
		if err != nil {
			if err := onErr(ctx, filepath.Join(dir, entry.Name()), err); err != nil {
				return err
			}
			continue
		}

		action, err := visit(ctx, n)
		if err != nil {
			return err
		}

		if n.IsDir() && !n.Symlink && action == Continue {
			if err := walkDir(ctx, n.Path, n.Rel, visit, onErr); err != nil {
				return err
			}
		}
	}

	return nil
}

func newNode(dir, rel string, entry fs.DirEntry) (Node, error) {
	n := Node{
		Path:    filepath.Join(dir, entry.Name()),
		Rel:     path.Join(rel, entry.Name()),
		Name:    entry.Name(),
		Symlink: entry.Type()&fs.ModeSymlink != 0,
	}

	// stat follows symlinks so a link to a file is treated as that file
	info, err := os.Stat(n.Path)
	if err != nil {
		return n, errors.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		n.Kind = KindDir
	}
	return n, nil
}
