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

package sops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/database/sops"
)

func TestFormat(t *testing.T) {
	testDefs := []struct {
		name      string
		data      string
		format    string
		encrypted bool
	}{
		{
			name: "plain yaml",
			data: "name: test\nblocksBufferLength: 10\n",
		},
		{
			name: "not a document",
			data: "::::",
		},
		{
			name:      "encrypted yaml",
			data:      "name: ENC[AES256_GCM,data:abc]\nsops:\n  version: 3.11.0\n",
			format:    sops.FormatYAML,
			encrypted: true,
		},
		{
			name:      "encrypted binary",
			data:      `{"data": "ENC[AES256_GCM,data:abc]", "sops": {"version": "3.11.0"}}`,
			format:    sops.FormatBinary,
			encrypted: true,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			format, ok := sops.Format([]byte(testDef.data))
			assert.Equal(t, testDef.encrypted, ok)
			assert.Equal(t, testDef.format, format)
		})
	}
}

func TestEncryptRequiresMasterKey(t *testing.T) {
	t.Setenv("PROJECTOR_GCP_KMS_RESOURCE_ID", "")
	t.Setenv("PROJECTOR_AWS_KMS_KEY_ARNS", "")
	_, err := sops.Encrypt([]byte("name: test\n"))
	require.ErrorContains(t, err, "at least one master key")
}

func TestDecryptPlaintext(t *testing.T) {
	_, err := sops.DecryptFormat([]byte("name: test\n"), sops.FormatYAML)
	require.Error(t, err)
}
