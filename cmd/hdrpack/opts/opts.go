package opts

import (
	"github.com/walteh/hdrpack/pkg/imaging"
	"github.com/walteh/hdrpack/pkg/log"
	"github.com/walteh/hdrpack/pkg/operation"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Log     *log.Logger
	LogFile string
	Silent  bool
	Debug   bool
	Quality int
}

// NewPipeline builds a pipeline writing to the shared log
func (o *RootOpts) NewPipeline(skipDerived bool) (*operation.Pipeline, error) {
	return operation.New(operation.Options{
		Log:         o.Log,
		Transformer: imaging.NewResampler(o.Quality),
		SkipDerived: skipDerived,
	})
}
