package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/hdrpack/cmd/hdrpack/opts"
	"github.com/walteh/hdrpack/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// NewRunCmd creates a new run command
func NewRunCmd(o *opts.RootOpts) *cobra.Command {
	var plan operation.Plan
	var skipDerived bool

	cmd := &cobra.Command{
		Use:   "run DIR",
		Short: "Convert, archive and compress a folder in one go",
		Long: `Run executes the whole pipeline against DIR:
1. Convert every JPEG to an SDR copy
2. Move originals with an SDR copy into HDR folders
3. Package the tree into --output, if given`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.NewPipeline(skipDerived)
			if err != nil {
				return errors.Errorf("creating pipeline: %w", err)
			}

			o.Log.Header("processing " + args[0])

			summary, err := operation.NewRunner(p).Run(cmd.Context(), args[0], plan)
			printSummary(o, summary)
			if err != nil {
				return errors.Errorf("running pipeline: %w", err)
			}
			return nil
		},
	}

	addBoxFlags(cmd, &plan.Box, &skipDerived)
	addCompressFlags(cmd, &plan.Output, &plan.Excludes, &plan.Globs)
	cmd.Flags().BoolVar(&plan.SkipConvert, "no-convert", false, "skip the conversion stage")
	cmd.Flags().BoolVar(&plan.SkipArchive, "no-archive", false, "skip the archival stage")
	return cmd
}
