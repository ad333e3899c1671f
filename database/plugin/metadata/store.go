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

package metadata

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/plugin"
	_ "github.com/blinklabs-io/projector/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/projector/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/projector/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/projector/database/types"
)

type MetadataStore interface {
	plugin.Plugin

	// Database
	Close() error
	DB() *gorm.DB
	DropSchema() error
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Dialect
	SupportsRowLocking() bool
	IsTransient(error) bool

	// Stake keys
	AddStakeKeys([][]byte, uint64, types.Txn) error
	DeleteStakeKeys([][]byte, types.Txn) error
	GetStakeKeys(types.Txn) ([]models.StakeKey, error)
	CountStakeKeys(types.Txn) (int64, error)

	// Outputs
	AddOutputs([]models.Output, []models.OutputAsset, types.Txn) error
	SpendOutput([]byte, uint32, []byte, uint64, types.Txn) error
	UnspendOutput([]byte, uint32, types.Txn) error
	DeleteOutput([]byte, uint32, types.Txn) error
	GetOutput([]byte, uint32, types.Txn) (models.Output, error)
	GetOutputAssets([]byte, uint32, types.Txn) ([]models.OutputAsset, error)
	CountOutputs(bool, types.Txn) (int64, error)

	// Assets
	GetAsset([]byte, []byte, types.Txn) (models.Asset, error)
	SetAsset(*models.Asset, types.Txn) error
	DeleteAsset([]byte, []byte, types.Txn) error
	GetAssetsByPolicy([]byte, types.Txn) ([]models.Asset, error)
	CountAssets(types.Txn) (int64, error)

	// Checkpoints and undo bookkeeping
	GetCheckpoint(string, bool, types.Txn) (models.Checkpoint, error)
	SetCheckpoint(*models.Checkpoint, types.Txn) error
	GetCheckpoints(types.Txn) ([]models.Checkpoint, error)
	AddProjectedBlock(*models.ProjectedBlock, types.Txn) error
	GetProjectedBlock(string, []byte, types.Txn) (models.ProjectedBlock, error)
	GetProjectedBlocks(string, types.Txn) ([]models.ProjectedBlock, error)
	GetProjectedBlocksAfter(string, uint64, types.Txn) ([]models.ProjectedBlock, error)
	GetProjectedBlocksBeyondDepth(string, int, types.Txn) ([]models.ProjectedBlock, error)
	DeleteProjectedBlock(string, []byte, types.Txn) error
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
