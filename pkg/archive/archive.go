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

// Package archive streams files into a compressed container.
package archive

import (
	"context"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 📦 Entry is a file queued for the archive
type Entry struct {
	Source string // Path on disk
	Name   string // Slash-separated name inside the archive
}

// 📥 Writer is a streaming archive sink. Entries are written in the order they
// are enqueued.
type Writer interface {
	// Enqueue queues a file. It fails if the sink has already failed.
	Enqueue(ctx context.Context, e Entry) error
	// Finalize flushes and closes the archive and returns its size in bytes.
	Finalize(ctx context.Context) (int64, error)
	// Abort stops the sink and removes any partial output.
	Abort() error
}

// TempPath is where a ZipWriter builds the archive for path until Finalize.
func TempPath(path string) string {
	return path + ".tmp"
}

// 🗜️ ZipWriter writes a zip container at maximum deflate compression. The
// archive is built beside its destination and only replaces it on Finalize, so
// a failed run leaves an existing archive untouched.
type ZipWriter struct {
	path    string
	tmp     string
	file    *os.File
	counter *countingWriter
	zw      *zip.Writer

	entries chan Entry
	group   *errgroup.Group
	gctx    context.Context
	closed  bool
}

var _ Writer = (*ZipWriter)(nil)

// 🏭 NewZipWriter creates the temp file and starts the writer goroutine
func NewZipWriter(ctx context.Context, path string) (*ZipWriter, error) {
	tmp := TempPath(path)
	f, err := os.Create(tmp)
	if err != nil {
		return nil, errors.Errorf("creating archive: %w", err)
	}

	counter := &countingWriter{w: f}
	zw := zip.NewWriter(counter)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	group, gctx := errgroup.WithContext(ctx)
	w := &ZipWriter{
		path:    path,
		tmp:     tmp,
		file:    f,
		counter: counter,
		zw:      zw,
		entries: make(chan Entry),
		group:   group,
		gctx:    gctx,
	}
	group.Go(w.drain)

	return w, nil
}

func (w *ZipWriter) drain() error {
	for e := range w.entries {
		if err := w.write(e); err != nil {
			return errors.Errorf("writing %s: %w", e.Name, err)
		}
	}
	return nil
}

func (w *ZipWriter) write(e Entry) error {
	src, err := os.Open(e.Source)
	if err != nil {
		return errors.Errorf("opening source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.Errorf("stat source: %w", err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Errorf("building header: %w", err)
	}
	hdr.Name = e.Name
	hdr.Method = zip.Deflate

	dst, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return errors.Errorf("creating entry: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Errorf("copying content: %w", err)
	}

	zerolog.Ctx(w.gctx).Trace().Str("entry", e.Name).Int64("size", info.Size()).Msg("archived entry")
	return nil
}

// 📥 Enqueue implements Writer
func (w *ZipWriter) Enqueue(ctx context.Context, e Entry) error {
	if w.closed {
		return errors.New("archive already closed")
	}
	select {
	case w.entries <- e:
		return nil
	case <-w.gctx.Done():
		if err := w.stop(); err != nil {
			return err
		}
		return errors.Errorf("archive writer stopped: %w", context.Cause(w.gctx))
	case <-ctx.Done():
		return errors.Errorf("enqueueing %s: %w", e.Name, ctx.Err())
	}
}

// ✅ Finalize implements Writer
func (w *ZipWriter) Finalize(ctx context.Context) (int64, error) {
	if err := w.stop(); err != nil {
		return 0, err
	}

	if err := w.zw.Close(); err != nil {
		w.file.Close()
		return 0, errors.Errorf("closing archive: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return 0, errors.Errorf("syncing archive: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return 0, errors.Errorf("closing file: %w", err)
	}
	if err := os.Rename(w.tmp, w.path); err != nil {
		return 0, errors.Errorf("renaming archive: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", w.path).Int64("bytes", w.counter.n).Msg("archive finalized")
	return w.counter.n, nil
}

// 🗑️ Abort implements Writer
func (w *ZipWriter) Abort() error {
	w.stop()
	w.file.Close()
	if err := os.Remove(w.tmp); err != nil && !os.IsNotExist(err) {
		return errors.Errorf("removing partial archive: %w", err)
	}
	return nil
}

// stop closes the queue once and waits for the writer goroutine.
func (w *ZipWriter) stop() error {
	if !w.closed {
		w.closed = true
		close(w.entries)
	}
	if err := w.group.Wait(); err != nil {
		return errors.Errorf("archive writer: %w", err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
