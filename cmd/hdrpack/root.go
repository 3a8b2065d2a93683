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

package main

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/hdrpack/cmd/hdrpack/commands"
	"github.com/walteh/hdrpack/cmd/hdrpack/opts"
	"github.com/walteh/hdrpack/pkg/imaging"
	"github.com/walteh/hdrpack/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// newRootCmd wires the root command and its subcommands around shared options
func newRootCmd(console io.Writer) (*cobra.Command, *opts.RootOpts) {
	o := &opts.RootOpts{Log: log.New(console)}

	cmd := &cobra.Command{
		Use:   "hdrpack",
		Short: "Convert, archive and package a folder of HDR photos",
		Long: `hdrpack prepares a local photo folder for delivery. It writes an SDR
copy (<name>.sdr.jpg) of every JPEG, moves originals that have an SDR copy into
an HDR folder beside them, and packages the tree into a zip archive.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := setupLogging(cmd, o.Debug)
			cmd.SetContext(ctx)
			o.Log.SetSilent(o.Silent)
			return nil
		},
	}

	addRootFlags(cmd, o)

	cmd.AddCommand(
		commands.NewConvertCmd(o),
		commands.NewArchiveCmd(o),
		commands.NewCompressCmd(o),
		commands.NewRunCmd(o),
		newVersionCmd(),
	)

	return cmd, o
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.LogFile, "log-file", "l", "", "write the event log as JSON to this path")
	cmd.PersistentFlags().BoolVarP(&o.Silent, "silent", "s", false, "do not echo events to the console")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().IntVarP(&o.Quality, "quality", "q", imaging.DefaultQuality, "JPEG quality of derived images")
}

// setupLogging configures zerolog based on flags and tags it with a run ID
func setupLogging(cmd *cobra.Command, debug bool) context.Context {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Str("run", uuid.NewString()).
		Str("command", cmd.Name()).
		Logger()
	return logger.WithContext(cmd.Context())
}

// flushLog persists the event log when --log-file is set
func flushLog(o *opts.RootOpts) error {
	if o.LogFile == "" {
		return nil
	}
	if err := o.Log.Flush(o.LogFile); err != nil {
		return errors.Errorf("saving log: %w", err)
	}
	return nil
}
