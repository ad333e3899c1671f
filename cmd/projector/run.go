// Copyright 2026 Blink Labs Software
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
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/internal/config"
	"github.com/blinklabs-io/projector/internal/node"
	"github.com/blinklabs-io/projector/projection"
)

func runRun(_ *cobra.Command, _ []string, cfg *config.Config) {
	logger := commonRun(cfg)

	// Run projection
	if err := node.Run(cfg, logger); err != nil {
		var runErr *projection.RunError
		if errors.As(err, &runErr) {
			slog.Error(
				runErr.Err.Error(),
				"kind", runErr.Kind.String(),
				"checkpoint", chainsync.PointString(runErr.Checkpoint),
			)
		} else {
			slog.Error(err.Error())
		}
		os.Exit(1)
	}
}

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured projections",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			runRun(cmd, args, cfg)
		},
	}
	return cmd
}
