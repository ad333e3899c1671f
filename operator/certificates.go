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

package operator

import (
	"github.com/blinklabs-io/projector/chainsync"
)

// BlockCertificate is a certificate with its position in the block
type BlockCertificate struct {
	Certificate chainsync.Certificate
	TxIndex     uint32
	CertIndex   uint32
}

// WithCertificates flattens the certificates of every transaction in the
// block, in encounter order. A roll backward from the source has no block
// and yields an empty list.
func WithCertificates() Operator {
	return Operator{
		Name:     "WithCertificates",
		Provides: FactCertificates,
		Apply:    withCertificates,
	}
}

func withCertificates(evt Event) (Event, error) {
	certs := []BlockCertificate{}
	if evt.Block != nil {
		for _, tx := range evt.Block.Transactions {
			for idx, cert := range tx.Certificates {
				if cert == nil {
					return evt, chainsync.NewMalformedEventError(
						evt.Point,
						"nil certificate",
					)
				}
				if !cert.Type().Valid() {
					return evt, chainsync.NewUnknownCertificateError(
						uint(cert.Type()),
					)
				}
				certs = append(certs, BlockCertificate{
					Certificate: cert,
					TxIndex:     tx.Index,
					CertIndex:   uint32(idx), //nolint:gosec
				})
			}
		}
	}
	evt.Certificates = certs
	return evt.withFact(FactCertificates), nil
}
