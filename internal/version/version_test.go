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

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionString(t *testing.T) {
	origVersion, origCommit := Version, CommitHash
	t.Cleanup(func() {
		Version, CommitHash = origVersion, origCommit
	})
	Version, CommitHash = "", "abc123"
	assert.Equal(t, "devel (commit abc123)", GetVersionString())
	Version = "v1.2.3"
	assert.Equal(t, "v1.2.3 (commit abc123)", GetVersionString())
}
