package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/hdrpack/cmd/hdrpack/opts"
	"github.com/walteh/hdrpack/pkg/imaging"
	"github.com/walteh/hdrpack/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// NewConvertCmd creates a new convert command
func NewConvertCmd(o *opts.RootOpts) *cobra.Command {
	var box imaging.Box
	var skipDerived bool

	cmd := &cobra.Command{
		Use:   "convert DIR",
		Short: "Write an SDR copy of every JPEG in a folder",
		Long: `Convert walks DIR and writes <name>.sdr.jpg next to every .jpg file,
scaled to fit inside --width/--height without enlarging. A file that fails
to convert is logged and the rest are still processed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.NewPipeline(skipDerived)
			if err != nil {
				return errors.Errorf("creating pipeline: %w", err)
			}

			report, err := p.Convert(cmd.Context(), args[0], box)
			printSummary(o, &operation.Summary{Conversion: report})
			if err != nil {
				return errors.Errorf("converting: %w", err)
			}
			return nil
		},
	}

	addBoxFlags(cmd, &box, &skipDerived)
	return cmd
}

func addBoxFlags(cmd *cobra.Command, box *imaging.Box, skipDerived *bool) {
	cmd.Flags().IntVarP(&box.Width, "width", "W", 0, "maximum width of derived images (0 = unset)")
	cmd.Flags().IntVarP(&box.Height, "height", "H", 0, "maximum height of derived images (0 = unset)")
	cmd.Flags().BoolVar(skipDerived, "skip-derived", false, "do not convert files that already end in .sdr.jpg")
}
