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

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/projector/database/sops"
)

var encryptFlags = struct {
	output string
}{}

// encryptConfig encrypts a plaintext config file with the KMS keys named by
// PROJECTOR_GCP_KMS_RESOURCE_ID or PROJECTOR_AWS_KMS_KEY_ARNS
func encryptConfig(input string, output string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if _, encrypted := sops.Format(data); encrypted {
		return fmt.Errorf("%s is already encrypted", input)
	}
	ret, err := sops.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypting config file: %w", err)
	}
	if output == "" {
		_, err = os.Stdout.Write(ret)
		return err
	}
	return os.WriteFile(output, ret, 0o600)
}

func encryptConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:              "encrypt-config FILE",
		Short:            "Encrypt a config file with sops for use with --config",
		Args:             cobra.ExactArgs(1),
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			if err := encryptConfig(args[0], encryptFlags.output); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().
		StringVarP(&encryptFlags.output, "output", "o", "", "write the encrypted file here instead of stdout")
	return cmd
}
