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
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// buildVersion describes the running binary from its embedded build info
type buildVersion struct {
	Module     string
	Version    string
	Go         string
	Platform   string
	Commit     string
	CommitTime string
	Dirty      bool
}

func readBuildVersion() buildVersion {
	v := buildVersion{
		Version:  "dev",
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}

	v.Module = bi.Main.Path
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v.Version = bi.Main.Version
	}

	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}
	v.Commit = shortCommit(settings["vcs.revision"])
	v.CommitTime = settings["vcs.time"]
	v.Dirty = settings["vcs.modified"] == "true"

	return v
}

// shortCommit trims a revision hash to the usual 12 characters
func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func (v buildVersion) String() string {
	if v.Dirty {
		return v.Version + "+dirty"
	}
	return v.Version
}

func (v buildVersion) table() (string, error) {
	commit := v.Commit
	if commit == "" {
		commit = "unknown"
	}
	rows := pterm.TableData{
		{"version", v.String()},
		{"commit", commit},
		{"built", v.CommitTime},
		{"module", v.Module},
		{"go", v.Go},
		{"platform", v.Platform},
	}
	return pterm.DefaultTable.WithData(rows).Srender()
}

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := readBuildVersion()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}

			table, err := v.table()
			if err != nil {
				return errors.Errorf("rendering version table: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🚀 hdrpack version info\n%s\n", table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the version")
	return cmd
}
