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

package gcs

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/blinklabs-io/projector/database/types"
)

const DefaultTimeout = 30 * time.Second

// BlobStoreGCS stores undo records as objects in a Google Cloud Storage
// bucket. Object names are the hex encoded blob keys under an optional
// prefix.
type BlobStoreGCS struct {
	promRegistry    prometheus.Registerer
	metrics         *blobMetrics
	logger          *slog.Logger
	client          *storage.Client
	bucket          *storage.BucketHandle
	bucketName      string
	prefix          string
	credentialsFile string
	timeout         time.Duration
}

// New creates a GCS-backed blob store from a 'gcs://<bucket>[/<prefix>]'
// location
func New(
	location string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreGCS, error) {
	after, ok := strings.CutPrefix(location, "gcs://")
	if !ok || after == "" {
		return nil, errors.New(
			"gcs blob: bucket not set (expected location='gcs://<bucket>')",
		)
	}
	bucketName, prefix, _ := strings.Cut(after, "/")
	return NewWithOptions(
		WithBucket(bucketName),
		WithPrefix(prefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// NewWithOptions creates a new GCS-backed blob store using options. The
// client is not created until Start.
func NewWithOptions(opts ...BlobStoreGCSOptionFunc) (*BlobStoreGCS, error) {
	db := &BlobStoreGCS{
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreGCS) Start() error {
	if d.bucketName == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if d.credentialsFile != "" {
		if err := validateCredentials(d.credentialsFile); err != nil {
			return err
		}
	}
	var clientOpts []option.ClientOption
	clientOpts = append(clientOpts, storage.WithDisabledClientMetrics())
	if d.credentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(d.credentialsFile),
		)
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	client, err := storage.NewGRPCClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf(
			"gcs blob: failed in creating storage client: %w",
			err,
		)
	}
	d.client = client
	d.bucket = client.Bucket(d.bucketName)
	if d.promRegistry != nil && d.metrics == nil {
		d.registerBlobMetrics()
	}
	d.logger.Info(
		"using GCS bucket for undo records",
		"component", "database",
		"bucket", d.bucketName,
		"prefix", d.prefix,
	)
	return nil
}

func validateCredentials(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf(
				"gcs blob: GCS credentials file does not exist: %s",
				path,
			)
		}
		return fmt.Errorf("gcs blob: failed to read credentials file: %w", err)
	}
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreGCS) Stop() error {
	return d.Close()
}

// Close closes the GCS client
func (d *BlobStoreGCS) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	d.bucket = nil
	return err
}

// Bucket returns the bucket handle
func (d *BlobStoreGCS) Bucket() *storage.BucketHandle {
	return d.bucket
}

func (d *BlobStoreGCS) objectName(key []byte) string {
	return d.prefix + hex.EncodeToString(key)
}

func (d *BlobStoreGCS) objectKey(name string) ([]byte, bool) {
	encoded, ok := strings.CutPrefix(name, d.prefix)
	if !ok {
		return nil, false
	}
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	return key, true
}

func (d *BlobStoreGCS) readObject(key []byte) ([]byte, error) {
	if d.bucket == nil {
		return nil, types.ErrNoStoreAvailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	r, err := d.bucket.Object(d.objectName(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	defer r.Close()
	val, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	d.metrics.observe(opGet, len(val))
	return val, nil
}

func (d *BlobStoreGCS) writeObject(key, val []byte) error {
	if d.bucket == nil {
		return types.ErrNoStoreAvailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	w := d.bucket.Object(d.objectName(key)).NewWriter(ctx)
	if _, err := w.Write(val); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	d.metrics.observe(opSet, len(val))
	return nil
}

func (d *BlobStoreGCS) deleteObject(key []byte) error {
	if d.bucket == nil {
		return types.ErrNoStoreAvailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	err := d.bucket.Object(d.objectName(key)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	d.metrics.observe(opDelete, 0)
	return nil
}

// listObjects returns the keys stored under the given key prefix
func (d *BlobStoreGCS) listObjects(prefix []byte) ([][]byte, error) {
	if d.bucket == nil {
		return nil, types.ErrNoStoreAvailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	query := &storage.Query{Prefix: d.objectName(prefix)}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, err
	}
	var ret [][]byte
	iter := d.bucket.Objects(ctx, query)
	for {
		attrs, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		key, ok := d.objectKey(attrs.Name)
		if !ok {
			continue
		}
		ret = append(ret, key)
	}
	return ret, nil
}

// NewTransaction returns a transaction that stages writes in memory until
// it is committed
func (d *BlobStoreGCS) NewTransaction(update bool) types.Txn {
	return newGcsTxn(d, update)
}

// Get retrieves a value, observing writes staged in the transaction
func (d *BlobStoreGCS) Get(txn types.Txn, key []byte) ([]byte, error) {
	gTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	if val, staged := gTxn.staged(key); staged {
		if val == nil {
			return nil, types.ErrBlobKeyNotFound
		}
		return slices.Clone(val), nil
	}
	return d.readObject(key)
}

// Set stages a key-value pair in the transaction
func (d *BlobStoreGCS) Set(txn types.Txn, key, val []byte) error {
	gTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if val == nil {
		val = []byte{}
	}
	return gTxn.stage(key, slices.Clone(val))
}

// Delete stages the removal of a key in the transaction
func (d *BlobStoreGCS) Delete(txn types.Txn, key []byte) error {
	gTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return gTxn.stage(key, nil)
}

// Keys returns every key with the given prefix in ascending order,
// including keys staged in the transaction
func (d *BlobStoreGCS) Keys(txn types.Txn, prefix []byte) ([][]byte, error) {
	gTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	stored, err := d.listObjects(prefix)
	if err != nil {
		return nil, err
	}
	var ret [][]byte
	for _, key := range stored {
		if _, staged := gTxn.staged(key); !staged {
			ret = append(ret, key)
		}
	}
	for _, key := range gTxn.order {
		val := gTxn.writes[key]
		if val != nil && bytes.HasPrefix([]byte(key), prefix) {
			ret = append(ret, []byte(key))
		}
	}
	slices.SortFunc(ret, bytes.Compare)
	return ret, nil
}

// DropAll removes every object under the store prefix
func (d *BlobStoreGCS) DropAll() error {
	d.logger.Warn(
		"dropping all undo records",
		"component", "database",
		"bucket", d.bucketName,
		"prefix", d.prefix,
	)
	keys, err := d.listObjects(nil)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := d.deleteObject(key); err != nil {
			return err
		}
	}
	return nil
}
