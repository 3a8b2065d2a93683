package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/hdrpack/cmd/hdrpack/opts"
	"github.com/walteh/hdrpack/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// NewCompressCmd creates a new compress command
func NewCompressCmd(o *opts.RootOpts) *cobra.Command {
	var output string
	var excludes, globs []string

	cmd := &cobra.Command{
		Use:   "compress DIR",
		Short: "Package a folder into a zip archive",
		Long: `Compress streams every file below DIR into a zip archive at maximum
compression. Paths relative to DIR that match an --exclude pattern are left
out; a matching directory is skipped with everything below it.

Patterns use * as the only wildcard, match the whole relative path and ignore
case, e.g. --exclude '*HDR' --exclude '*.old'. Use --exclude-glob for doublestar
syntax, where * stops at / and ** crosses it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.NewPipeline(false)
			if err != nil {
				return errors.Errorf("creating pipeline: %w", err)
			}

			res, err := p.Compress(cmd.Context(), args[0], output, excludes, globs)
			printSummary(o, &operation.Summary{Compression: res})
			if err != nil {
				return errors.Errorf("compressing: %w", err)
			}
			return nil
		},
	}

	addCompressFlags(cmd, &output, &excludes, &globs)
	cmd.MarkFlagRequired("output")
	return cmd
}

func addCompressFlags(cmd *cobra.Command, output *string, excludes, globs *[]string) {
	cmd.Flags().StringVarP(output, "output", "o", "", "archive file to write")
	cmd.Flags().StringArrayVarP(excludes, "exclude", "x", nil, "exclusion pattern (repeatable)")
	cmd.Flags().StringArrayVar(globs, "exclude-glob", nil, "doublestar exclusion glob (repeatable)")
}
