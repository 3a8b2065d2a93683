package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/hdrpack/cmd/hdrpack/opts"
	"github.com/walteh/hdrpack/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// NewArchiveCmd creates a new archive command
func NewArchiveCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive DIR",
		Short: "Move originals that have an SDR copy into HDR folders",
		Long: `Archive walks DIR and moves every <name>.jpg whose <name>.sdr.jpg exists
into an HDR folder in the same directory. Run it after convert.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.NewPipeline(false)
			if err != nil {
				return errors.Errorf("creating pipeline: %w", err)
			}

			report, err := p.Archive(cmd.Context(), args[0])
			printSummary(o, &operation.Summary{Archival: report})
			if err != nil {
				return errors.Errorf("archiving: %w", err)
			}
			return nil
		},
	}

	return cmd
}
