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
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/internal/config"
)

var statusFlags = struct {
	stakeKeys bool
}{}

func statusRun(_ *cobra.Command, _ []string, cfg *config.Config) {
	logger := commonRun(cfg)
	db, err := database.New(&database.Config{
		DataDir:        cfg.Database.DataDir,
		Logger:         logger,
		BlobPlugin:     cfg.Database.BlobPlugin,
		MetadataPlugin: cfg.Database.MetadataPlugin,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		slog.Error(fmt.Sprintf("opening database: %s", err))
		os.Exit(1)
	}
	defer db.Close()
	if err := writeStatus(os.Stdout, db, statusFlags.stakeKeys); err != nil {
		slog.Error(err.Error())
		os.Exit(1) //nolint:gocritic
	}
}

// writeStatus prints every run checkpoint and the active stake-key set size
func writeStatus(w io.Writer, db *database.Database, listKeys bool) error {
	checkpoints, err := db.GetCheckpoints(nil)
	if err != nil {
		return fmt.Errorf("reading checkpoints: %w", err)
	}
	fmt.Fprintln(w, "Checkpoints:")
	if len(checkpoints) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, cp := range checkpoints {
		fmt.Fprintf(
			w,
			"  %s: slot %d, block %d, hash %s, updated %s\n",
			cp.Name,
			cp.Slot,
			cp.BlockNumber,
			hex.EncodeToString(cp.Hash),
			cp.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		)
	}
	count, err := db.CountStakeKeys(nil)
	if err != nil {
		return fmt.Errorf("counting stake keys: %w", err)
	}
	fmt.Fprintf(w, "Active stake keys: %d\n", count)
	if !listKeys {
		return nil
	}
	stakeKeys, err := db.GetStakeKeys(nil)
	if err != nil {
		return fmt.Errorf("reading stake keys: %w", err)
	}
	for _, stakeKey := range stakeKeys {
		addr, err := stakeKey.String()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s (slot %d)\n", addr, stakeKey.AddedSlot)
	}
	return nil
}

func statusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show projection checkpoints and the active stake-key count",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			statusRun(cmd, args, cfg)
		},
	}
	cmd.Flags().
		BoolVar(&statusFlags.stakeKeys, "stake-keys", false, "also list every active stake key")
	return cmd
}
