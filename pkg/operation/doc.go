/*
Package operation implements the three pipeline stages run over a photo folder.

	+-------------+     +-------------+     +---------------+
	|   Convert   | --> |   Archive   | --> |   Compress    |
	| (derive SDR)|     | (HDR folder)|     | (zip + globs) |
	+-------------+     +-------------+     +---------------+

🎯 Stages:
- Convert: every .jpg below the root is handed to an imaging.Transformer which
  writes "<name>.sdr.jpg" beside it
- Archive: an original whose ".sdr.jpg" sibling exists is moved into an "HDR"
  folder in the same directory
- Compress: the tree is streamed into a zip archive, skipping paths that match
  an exclusion pattern

🔄 Flow:
Stages run sequentially on one goroutine and process files one at a time in
traversal order. All three share a walk.Walk traversal and write to the same
log.Logger.

⚡ Errors:
- Convert and Archive treat per-file failures as recoverable: they are logged,
  collected as *ItemError in the report, and the stage moves on
- Compress treats any failure as fatal and returns a *FatalError, because a
  truncated archive is not useful

Archive only makes sense after Convert has produced derived files. The ordering
is up to the caller; Runner enforces it for the common case.

🔍 Example:

	p, _ := operation.New(operation.Options{
		Log:         log.New(os.Stdout),
		Transformer: imaging.NewResampler(90),
	})
	summary, err := operation.NewRunner(p).Run(ctx, dir, operation.Plan{
		Box:      imaging.Box{Width: 3840},
		Output:   "delivery.zip",
		Excludes: []string{"*HDR", "*.old"},
	})
*/
package operation
