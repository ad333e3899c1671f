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

package chainsync

import (
	"errors"
	"fmt"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
)

var (
	ErrUnknownCertificate = errors.New("unknown certificate variant")
	ErrMalformedEvent     = errors.New("malformed chain-sync event")
	ErrSourceClosed       = errors.New("event source closed")
)

type UnknownCertificateError struct {
	tag uint
}

func NewUnknownCertificateError(tag uint) UnknownCertificateError {
	return UnknownCertificateError{tag: tag}
}

func (e UnknownCertificateError) Tag() uint {
	return e.tag
}

func (e UnknownCertificateError) Error() string {
	return fmt.Sprintf("unknown certificate variant: tag %d", e.tag)
}

func (e UnknownCertificateError) Unwrap() error {
	return ErrUnknownCertificate
}

type MalformedEventError struct {
	reason string
	point  ocommon.Point
}

func NewMalformedEventError(
	point ocommon.Point,
	reason string,
) MalformedEventError {
	return MalformedEventError{point: point, reason: reason}
}

func (e MalformedEventError) Point() ocommon.Point {
	return e.point
}

func (e MalformedEventError) Error() string {
	return fmt.Sprintf(
		"malformed chain-sync event at %s: %s",
		PointString(e.point),
		e.reason,
	)
}

func (e MalformedEventError) Unwrap() error {
	return ErrMalformedEvent
}
