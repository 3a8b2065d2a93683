package walk_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/hdrpack/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// 🧪 makeTree creates files (and their parent directories) under a temp root
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

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func collect(ctx context.Context, t *testing.T, root string, skip map[string]bool) []string {
	t.Helper()
	var seen []string
	err := walk.Walk(ctx, root, func(ctx context.Context, n walk.Node) (walk.Action, error) {
		seen = append(seen, n.Kind.String()+":"+n.Rel)
		if skip[n.Rel] {
			return walk.SkipSubtree, nil
		}
		return walk.Continue, nil
	}, nil)
	require.NoError(t, err)
	return seen
}

func TestWalkDepthFirst(t *testing.T) {
	ctx := testContext(t)
	root := makeTree(t, "a.jpg", "b/c.jpg", "b/d/e.txt", "f.txt")

	seen := collect(ctx, t, root, nil)
	assert.Equal(t, []string{
		"file:a.jpg",
		"dir:b",
		"file:b/c.jpg",
		"dir:b/d",
		"file:b/d/e.txt",
		"file:f.txt",
	}, seen)
}

func TestWalkSkipSubtree(t *testing.T) {
	ctx := testContext(t)
	root := makeTree(t, "keep.txt", "skip/HDR/x.jpg", "skip/y.jpg")

	seen := collect(ctx, t, root, map[string]bool{"skip/HDR": true})
	assert.Equal(t, []string{
		"file:keep.txt",
		"dir:skip",
		"dir:skip/HDR",
		"file:skip/y.jpg",
	}, seen)
}

func TestWalkContinuesAfterEntryError(t *testing.T) {
	ctx := testContext(t)
	root := makeTree(t, "a.txt", "c.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "b-broken")))

	var failed []string
	var seen []string
	err := walk.Walk(ctx, root, func(ctx context.Context, n walk.Node) (walk.Action, error) {
		seen = append(seen, n.Rel)
		return walk.Continue, nil
	}, func(ctx context.Context, path string, err error) error {
		failed = append(failed, filepath.Base(path))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "c.txt"}, seen)
	assert.Equal(t, []string{"b-broken"}, failed)
}

func TestWalkAbortOnEntryError(t *testing.T) {
	ctx := testContext(t)
	root := makeTree(t, "a.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "broken")))

	err := walk.Walk(ctx, root, func(ctx context.Context, n walk.Node) (walk.Action, error) {
		return walk.Continue, nil
	}, walk.Abort)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func TestWalkVisitErrorAborts(t *testing.T) {
	ctx := testContext(t)
	root := makeTree(t, "a.txt", "b.txt")
	boom := errors.New("boom")

	count := 0
	err := walk.Walk(ctx, root, func(ctx context.Context, n walk.Node) (walk.Action, error) {
		count++
		return walk.Continue, boom
	}, nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count)
}

func TestWalkSymlinkedDirNotDescended(t *testing.T) {
	ctx := testContext(t)
	root := makeTree(t, "real/x.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "zlink")))

	seen := collect(ctx, t, root, nil)
	assert.Equal(t, []string{"dir:real", "file:real/x.txt", "dir:zlink"}, seen)
}

func TestWalkRootErrors(t *testing.T) {
	ctx := testContext(t)
	root := makeTree(t, "file.txt")

	noop := func(ctx context.Context, n walk.Node) (walk.Action, error) { return walk.Continue, nil }

	err := walk.Walk(ctx, filepath.Join(root, "nope"), noop, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading root")

	err = walk.Walk(ctx, filepath.Join(root, "file.txt"), noop, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestWalkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()
	root := makeTree(t, "a.txt")

	err := walk.Walk(ctx, root, func(ctx context.Context, n walk.Node) (walk.Action, error) {
		t.Fatalf("unexpected visit of %s", n.Rel)
		return walk.Continue, nil
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
