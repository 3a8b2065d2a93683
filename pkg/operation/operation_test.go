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

package operation_test

import (
	"context"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/hdrpack/pkg/archive"
	"github.com/walteh/hdrpack/pkg/imaging"
	"github.com/walteh/hdrpack/pkg/log"
	"github.com/walteh/hdrpack/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// 🎨 fakeTransformer writes a marker file to dst, failing for selected sources
type fakeTransformer struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeTransformer) Transform(ctx context.Context, src, dst string, box imaging.Box) (*imaging.Result, error) {
	f.calls = append(f.calls, filepath.Base(src))
	if f.fail[filepath.Base(src)] {
		return nil, errors.New("transform failed")
	}
	if err := os.WriteFile(dst, []byte("derived"), 0644); err != nil {
		return nil, err
	}
	return &imaging.Result{Width: box.Width, Height: box.Height}, nil
}

// 📥 fakeSink records entries and fails the enqueue numbered failAt (1-based)
type fakeSink struct {
	failAt  int
	entries []archive.Entry
	aborted bool
}

func (s *fakeSink) Enqueue(ctx context.Context, e archive.Entry) error {
	if s.failAt > 0 && len(s.entries)+1 == s.failAt {
		return errors.New("disk full")
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeSink) Finalize(ctx context.Context) (int64, error) {
	return int64(len(s.entries)), nil
}

func (s *fakeSink) Abort() error {
	s.aborted = true
	return nil
}

// 🧪 createTestEnv creates a test environment
func createTestEnv(t *testing.T, opts operation.Options) (context.Context, *operation.Pipeline, *log.Logger) {
	t.Helper()

	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	if opts.Log == nil {
		opts.Log = log.New(io.Discard)
	}
	if opts.Transformer == nil {
		opts.Transformer = &fakeTransformer{}
	}

	p, err := operation.New(opts)
	require.NoError(t, err)
	return ctx, p, opts.Log
}

func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0644))
	}
	return root
}

func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		if d.IsDir() {
			rel += "/"
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	}))
	sort.Strings(out)
	return out
}

func countMessages(l *log.Logger, prefix string) int {
	n := 0
	for _, m := range l.Messages() {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func TestNewValidation(t *testing.T) {
	_, err := operation.New(operation.Options{Transformer: &fakeTransformer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log is required")

	_, err = operation.New(operation.Options{Log: log.New(io.Discard)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transformer is required")
}

func TestConvert(t *testing.T) {
	tr := &fakeTransformer{}
	ctx, p, l := createTestEnv(t, operation.Options{Transformer: tr})
	root := makeTree(t, "a.jpg", "b.JPG", "sub/c.jpg", "note.txt", "d.jpeg")

	report, err := p.Convert(ctx, root, imaging.Box{Width: 3840})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Converted())
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"a.jpg", "b.JPG", "c.jpg"}, tr.calls)

	for _, res := range report.Results {
		assert.FileExists(t, res.Derived)
		assert.Equal(t, 3840, res.Image.Width)
	}
	assert.FileExists(t, filepath.Join(root, "b.sdr.jpg"))
	assert.FileExists(t, filepath.Join(root, "sub", "c.sdr.jpg"))

	msgs := l.Messages()
	assert.Equal(t, "All files have been processed.", msgs[len(msgs)-1])
	assert.Equal(t, 3, countMessages(l, "Converting "))
	assert.Equal(t, 3, countMessages(l, "Converted."))
}

func TestConvertFailureIsolation(t *testing.T) {
	tr := &fakeTransformer{fail: map[string]bool{"b.jpg": true}}
	ctx, p, l := createTestEnv(t, operation.Options{Transformer: tr})
	root := makeTree(t, "a.jpg", "b.jpg", "c.jpg")

	report, err := p.Convert(ctx, root, imaging.Box{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, tr.calls)
	assert.Equal(t, 2, report.Converted())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, operation.StageConvert, report.Failures[0].Stage)
	assert.Equal(t, "transform", report.Failures[0].Op)
	assert.Equal(t, filepath.Join(root, "b.jpg"), report.Failures[0].Path)
	assert.False(t, operation.IsFatal(report.Failures[0]))

	assert.Equal(t, 1, countMessages(l, "Error:"))
	assert.NoFileExists(t, filepath.Join(root, "b.sdr.jpg"))
	assert.FileExists(t, filepath.Join(root, "c.sdr.jpg"))
}

func TestConvertTwiceDerivesDerived(t *testing.T) {
	ctx, p, _ := createTestEnv(t, operation.Options{})
	root := makeTree(t, "a.jpg")

	_, err := p.Convert(ctx, root, imaging.Box{})
	require.NoError(t, err)
	_, err = p.Convert(ctx, root, imaging.Box{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpg", "a.sdr.jpg", "a.sdr.sdr.jpg"}, listTree(t, root))
}

func TestConvertSkipDerived(t *testing.T) {
	ctx, p, _ := createTestEnv(t, operation.Options{SkipDerived: true})
	root := makeTree(t, "a.jpg")

	_, err := p.Convert(ctx, root, imaging.Box{})
	require.NoError(t, err)
	report, err := p.Convert(ctx, root, imaging.Box{})
	require.NoError(t, err)

	assert.Len(t, report.Results, 1)
	assert.Equal(t, []string{"a.jpg", "a.sdr.jpg"}, listTree(t, root))
}

func TestConvertMissingRoot(t *testing.T) {
	ctx, p, _ := createTestEnv(t, operation.Options{})
	_, err := p.Convert(ctx, filepath.Join(t.TempDir(), "nope"), imaging.Box{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finding jpeg files")
}

func TestArchive(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		wantTree  []string
		wantMoved int
		wantFails int
	}{
		{
			name:      "derived_exists",
			files:     []string{"a.jpg", "a.sdr.jpg"},
			wantTree:  []string{"HDR/", "HDR/a.jpg", "a.sdr.jpg"},
			wantMoved: 1,
		},
		{
			name:     "no_derived_counterpart",
			files:    []string{"b.jpg"},
			wantTree: []string{"b.jpg"},
		},
		{
			name:      "uppercase_extension",
			files:     []string{"C.JPG", "C.sdr.jpg"},
			wantTree:  []string{"C.sdr.jpg", "HDR/", "HDR/C.JPG"},
			wantMoved: 1,
		},
		{
			name:      "nested_directories",
			files:     []string{"x/a.jpg", "x/a.sdr.jpg", "x/y/b.jpg", "x/y/b.sdr.jpg", "notes.txt"},
			wantTree:  []string{"notes.txt", "x/", "x/HDR/", "x/HDR/a.jpg", "x/a.sdr.jpg", "x/y/", "x/y/HDR/", "x/y/HDR/b.jpg", "x/y/b.sdr.jpg"},
			wantMoved: 2,
		},
		{
			name:      "existing_quarantine_copy_is_not_clobbered",
			files:     []string{"a.jpg", "a.sdr.jpg", "HDR/a.jpg"},
			wantTree:  []string{"HDR/", "HDR/a.jpg", "a.jpg", "a.sdr.jpg"},
			wantFails: 1,
		},
		{
			name:      "quarantine_path_is_a_file",
			files:     []string{"HDR", "a.jpg", "a.sdr.jpg", "sub/b.jpg", "sub/b.sdr.jpg"},
			wantTree:  []string{"HDR", "a.jpg", "a.sdr.jpg", "sub/", "sub/HDR/", "sub/HDR/b.jpg", "sub/b.sdr.jpg"},
			wantMoved: 1,
			wantFails: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, p, l := createTestEnv(t, operation.Options{})
			root := makeTree(t, tt.files...)

			report, err := p.Archive(ctx, root)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTree, listTree(t, root))
			assert.Len(t, report.Moved, tt.wantMoved)
			assert.Len(t, report.Failures, tt.wantFails)
			assert.Equal(t, tt.wantMoved, countMessages(l, "Moved "))
			for _, f := range report.Failures {
				assert.Equal(t, operation.StageArchive, f.Stage)
			}
		})
	}
}

func TestArchiveSkipsAndLogs(t *testing.T) {
	ctx, p, l := createTestEnv(t, operation.Options{})
	root := makeTree(t, "a.jpg", "a.sdr.jpg", "readme.md")

	report, err := p.Archive(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "a.sdr.jpg"), filepath.Join(root, "readme.md")}, report.Skipped)
	assert.Contains(t, l.Messages(), "Skipping a.sdr.jpg")
	assert.Contains(t, l.Messages(), "Skipping readme.md")
	assert.Contains(t, l.Messages(), "Archiving HDR files in "+root+"...")
}

func TestArchiveDoesNotDescendIntoNewQuarantine(t *testing.T) {
	ctx, p, l := createTestEnv(t, operation.Options{})
	root := makeTree(t, "a.jpg", "a.sdr.jpg")
	hdrMsg := "Archiving HDR files in " + filepath.Join(root, operation.QuarantineDir) + "..."

	_, err := p.Archive(ctx, root)
	require.NoError(t, err)
	assert.NotContains(t, l.Messages(), hdrMsg)

	// a second pass walks the now pre-existing folder and leaves it alone
	report, err := p.Archive(ctx, root)
	require.NoError(t, err)
	assert.Contains(t, l.Messages(), hdrMsg)
	assert.Empty(t, report.Moved)
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"HDR/", "HDR/a.jpg", "a.sdr.jpg"}, listTree(t, root))
}

func TestArchiveWalkErrorIsRecoverable(t *testing.T) {
	ctx, p, l := createTestEnv(t, operation.Options{})
	root := makeTree(t, "a.jpg", "a.sdr.jpg")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "broken.jpg")))

	report, err := p.Archive(ctx, root)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "walk", report.Failures[0].Op)
	assert.Len(t, report.Moved, 1)
	assert.Equal(t, 1, countMessages(l, filepath.Join(root, "broken.jpg")+" ERROR:"))
}

func readZip(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestCompress(t *testing.T) {
	ctx, p, l := createTestEnv(t, operation.Options{})
	root := makeTree(t, "keep.txt", "skip/HDR/x.jpg", "photos/a.sdr.jpg", "photos/old.OLD")
	out := filepath.Join(t.TempDir(), "out.zip")

	// excluded content is never listed: stat-ing this dangling link would
	// abort the walk
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "skip", "HDR", "dangling.jpg")))

	res, err := p.Compress(ctx, root, out, []string{"*HDR", "*.old"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"keep.txt", "photos/a.sdr.jpg"}, readZip(t, out))
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, []string{"photos/old.OLD", "skip/HDR"}, res.Excluded)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.Bytes)

	assert.Contains(t, l.Messages(), "Archive written successfully.")
}

func TestCompressOutputInsideTree(t *testing.T) {
	ctx, p, _ := createTestEnv(t, operation.Options{})
	root := makeTree(t, "a.txt")
	out := filepath.Join(root, "delivery.zip")

	_, err := p.Compress(ctx, root, out, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, readZip(t, out))

	// a second run finds the previous archive in the tree and leaves it out
	ctx, p, l := createTestEnv(t, operation.Options{})
	_, err = p.Compress(ctx, root, out, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, readZip(t, out))
	var skipped []any
	for _, e := range l.Events() {
		if e.Level == log.LevelWarning {
			assert.Equal(t, "Skipping archive output", e.Message)
			skipped = append(skipped, e.Details...)
		}
	}
	assert.Equal(t, []any{"delivery.zip", "delivery.zip.tmp"}, skipped)
}

func TestCompressGlobs(t *testing.T) {
	ctx, p, _ := createTestEnv(t, operation.Options{})
	root := makeTree(t, "keep.txt", "a/cache/x.bin", "a/b/cache/y.bin", "notes[1].txt")
	out := filepath.Join(t.TempDir(), "out.zip")

	res, err := p.Compress(ctx, root, out, []string{"notes[1].txt"}, []string{"**/cache"})
	require.NoError(t, err)

	assert.Equal(t, []string{"keep.txt"}, readZip(t, out))
	assert.Equal(t, []string{"a/b/cache", "a/cache", "notes[1].txt"}, sortedCopy(res.Excluded))
}

func TestCompressFailureKeepsPreviousArchive(t *testing.T) {
	ctx, p, _ := createTestEnv(t, operation.Options{})
	root := makeTree(t, "a.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling.txt")))
	out := filepath.Join(t.TempDir(), "out.zip")
	require.NoError(t, os.WriteFile(out, []byte("last good delivery"), 0644))

	_, err := p.Compress(ctx, root, out, nil, nil)
	require.Error(t, err)
	assert.True(t, operation.IsFatal(err))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "last good delivery", string(data))
	assert.NoFileExists(t, archive.TempPath(out))
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestCompressSinkFailure(t *testing.T) {
	sink := &fakeSink{failAt: 2}
	ctx, p, l := createTestEnv(t, operation.Options{
		NewSink: func(ctx context.Context, path string) (archive.Writer, error) { return sink, nil },
	})
	root := makeTree(t, "a.txt", "b.txt", "c.txt")

	res, err := p.Compress(ctx, root, "unused.zip", nil, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, operation.IsFatal(err))
	assert.Contains(t, err.Error(), "disk full")

	assert.True(t, sink.aborted)
	assert.Len(t, sink.entries, 1)
	assert.Equal(t, 1, countMessages(l, "Archive error:"))
	for _, m := range l.Messages() {
		assert.NotContains(t, m, "successfully")
	}
}

func TestCompressFatalSetup(t *testing.T) {
	tests := []struct {
		name     string
		globs    []string
		output   string
		wantErr  string
	}{
		{name: "invalid_glob", globs: []string{"[bad"}, output: "out.zip", wantErr: "compiling exclude patterns"},
		{name: "unwritable_output", output: filepath.Join("no", "such", "dir", "out.zip"), wantErr: "opening archive sink"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, p, _ := createTestEnv(t, operation.Options{})
			root := makeTree(t, "a.txt")

			_, err := p.Compress(ctx, root, filepath.Join(t.TempDir(), tt.output), nil, tt.globs)
			require.Error(t, err)
			assert.True(t, operation.IsFatal(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, image.NewGray(image.Rect(0, 0, w, h)), nil))
}

func TestRunnerEndToEnd(t *testing.T) {
	l := log.New(io.Discard)
	ctx, p, _ := createTestEnv(t, operation.Options{Log: l, Transformer: imaging.NewResampler(80)})
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "day1"), 0755))
	writeJPEG(t, filepath.Join(root, "a.jpg"), 40, 20)
	writeJPEG(t, filepath.Join(root, "day1", "b.jpg"), 20, 40)
	require.NoError(t, os.WriteFile(filepath.Join(root, "day1", "broken.jpg"), []byte("nope"), 0644))

	out := filepath.Join(root, "delivery.zip")
	summary, err := operation.NewRunner(p).Run(ctx, root, operation.Plan{
		Box:      imaging.Box{Width: 10},
		Output:   out,
		Excludes: []string{"*HDR"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Conversion.Converted())
	assert.Len(t, summary.Archival.Moved, 2)
	require.Len(t, summary.Failures(), 1)
	assert.Equal(t, filepath.Join(root, "day1", "broken.jpg"), summary.Failures()[0].Path)

	assert.Equal(t, []string{"a.sdr.jpg", "day1/b.sdr.jpg", "day1/broken.jpg"}, readZip(t, out))
	assert.Equal(t, 3, summary.Compression.Entries)
}

func TestRunnerStopsOnFatal(t *testing.T) {
	sink := &fakeSink{failAt: 1}
	ctx, p, _ := createTestEnv(t, operation.Options{
		NewSink: func(ctx context.Context, path string) (archive.Writer, error) { return sink, nil },
	})
	root := makeTree(t, "a.jpg")

	summary, err := operation.NewRunner(p).Run(ctx, root, operation.Plan{Output: "x.zip"})
	require.Error(t, err)
	assert.True(t, operation.IsFatal(err))
	assert.Nil(t, summary.Compression)
	assert.Equal(t, 1, summary.Conversion.Converted())
	assert.Len(t, summary.Archival.Moved, 1)
}
