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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/blinklabs-io/projector/database/plugin"
	"github.com/blinklabs-io/projector/internal/config"
	"github.com/blinklabs-io/projector/internal/version"
)

const (
	programName = "projector"
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

var (
	globalFlags = struct {
		debug       bool
		name        string
		projections []string
	}{}
	configFile string
)

func commonRun(cfg *config.Config) *slog.Logger {
	// Configure logger
	logLevel, err := cfg.SlogLevel()
	if err != nil {
		logLevel = slog.LevelInfo
	}
	addSource := false
	if globalFlags.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	// Configure max processes with our logger wrapper, toss undo func
	_, err = maxprocs.Set(maxprocs.Logger(slogPrintf))
	if err != nil {
		// If we hit this, something really wrong happened
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

func listPlugins(
	blobPlugin, metadataPlugin string,
) (shouldExit bool, output string) {
	var buf strings.Builder
	listed := false

	if blobPlugin == "list" {
		buf.WriteString("Available blob plugins:\n")
		writePlugins(&buf, plugin.PluginTypeBlob, false)
		listed = true
	}

	if metadataPlugin == "list" {
		if listed {
			buf.WriteString("\n")
		}
		buf.WriteString("Available metadata plugins:\n")
		writePlugins(&buf, plugin.PluginTypeMetadata, false)
		listed = true
	}

	if listed {
		return true, buf.String()
	}
	return false, ""
}

func writePlugins(
	buf *strings.Builder,
	pluginType plugin.PluginType,
	withOptions bool,
) {
	for _, p := range plugin.GetPlugins(pluginType) {
		fmt.Fprintf(buf, "  %s: %s\n", p.Name, p.Description)
		if !withOptions {
			continue
		}
		for _, option := range p.Options {
			fmt.Fprintf(
				buf,
				"      --%s-%s-%s: %s (default: %v)\n",
				plugin.PluginTypeName(pluginType),
				p.Name,
				option.Name,
				option.Description,
				option.DefaultValue,
			)
		}
	}
}

func listAllPlugins() string {
	var buf strings.Builder
	buf.WriteString("Available plugins:\n\n")

	buf.WriteString("Blob Storage Plugins:\n")
	writePlugins(&buf, plugin.PluginTypeBlob, true)

	buf.WriteString("\nMetadata Storage Plugins:\n")
	writePlugins(&buf, plugin.PluginTypeMetadata, true)

	return buf.String()
}

func listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list-plugins",
		Aliases: []string{"list"},
		Short:   "List all available storage plugins and their options",
		// No config needed
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(listAllPlugins())
		},
	}
	return cmd
}

func versionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:              "version",
		Short:            "Show version information",
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", programName, version.GetVersionString())
		},
	}
	return cmd
}

// changedFlags records the values of flags given on the command line
func changedFlags(fs *pflag.FlagSet) map[string]string {
	ret := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		ret[f.Name] = f.Value.String()
	})
	return ret
}

// reapplyFlags sets flags given on the command line again, so they win over
// plugin options applied from the config file and environment
func reapplyFlags(fs *pflag.FlagSet, values map[string]string) error {
	for name, value := range values {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		// Slice flags append on Set
		if _, ok := f.Value.(pflag.SliceValue); ok {
			continue
		}
		if err := f.Value.Set(value); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Project Cardano chain events into a relational store",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			runRun(cmd, args, cfg)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().
		StringP("blob", "b", config.DefaultBlobPlugin, "blob store plugin to use, 'list' to show available")
	rootCmd.PersistentFlags().
		StringP("metadata", "m", config.DefaultMetadataPlugin, "metadata store plugin to use, 'list' to show available")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.name, "name", "", "projection run name")
	rootCmd.PersistentFlags().
		StringSliceVar(&globalFlags.projections, "projection", nil, "projection to maintain (repeatable)")

	// Add plugin-specific flags
	if err := plugin.PopulateCmdlineOptions(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Error adding plugin flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Handle plugin listing before config loading
		blobPlugin, _ := cmd.Root().PersistentFlags().GetString("blob")
		metadataPlugin, _ := cmd.Root().PersistentFlags().GetString("metadata")

		shouldExit, output := listPlugins(blobPlugin, metadataPlugin)
		if shouldExit {
			fmt.Print(output)
			os.Exit(0)
		}

		cmdlineValues := changedFlags(cmd.Flags())
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := reapplyFlags(cmd.Flags(), cmdlineValues); err != nil {
			return err
		}

		// Override config with command line flags
		if blobPlugin != config.DefaultBlobPlugin {
			cfg.Database.BlobPlugin = blobPlugin
		}
		if metadataPlugin != config.DefaultMetadataPlugin {
			cfg.Database.MetadataPlugin = metadataPlugin
		}
		if globalFlags.name != "" {
			cfg.Name = globalFlags.name
		}
		if len(globalFlags.projections) > 0 {
			cfg.Projections = globalFlags.projections
		}

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(statusCommand())
	rootCmd.AddCommand(listCommand())
	rootCmd.AddCommand(versionCommand())
	rootCmd.AddCommand(encryptConfigCommand())

	// Execute cobra command
	if err := rootCmd.Execute(); err != nil {
		// NOTE: we purposely don't display the error, since cobra will have already displayed it
		os.Exit(1)
	}
}
