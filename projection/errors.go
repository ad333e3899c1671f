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

package projection

import (
	"errors"
	"fmt"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/operator"
)

var (
	ErrUnknownProjection = errors.New("unknown projection")
	// ErrDivergence is returned when the store holds a lineage the run
	// cannot reconcile with the events it receives
	ErrDivergence = errors.New("checkpoint divergence")
	// ErrRetryExhausted wraps the last transient error once the retry
	// budget is used up
	ErrRetryExhausted = errors.New("retry budget exhausted")
	ErrOutOfOrder     = errors.New("event out of order")
)

type ErrorKind int

const (
	ErrorKindStructural ErrorKind = iota + 1
	ErrorKindDivergence
	ErrorKindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindStructural:
		return "structural"
	case ErrorKindDivergence:
		return "divergence"
	case ErrorKindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// RunError is the terminal error of a run. Checkpoint is the last durable
// point, which a later run resumes from.
type RunError struct {
	Err        error
	Checkpoint ocommon.Point
	Kind       ErrorKind
}

func NewRunError(kind ErrorKind, checkpoint ocommon.Point, err error) *RunError {
	return &RunError{
		Kind:       kind,
		Checkpoint: checkpoint,
		Err:        err,
	}
}

func (e *RunError) Error() string {
	return fmt.Sprintf(
		"projection %s error at checkpoint %s: %s",
		e.Kind,
		chainsync.PointString(e.Checkpoint),
		e.Err,
	)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// classify maps an error to its kind. Transient errors only reach here once
// the retry loop gave up on them, and are promoted to fatal.
func classify(err error) ErrorKind {
	var runErr *RunError
	switch {
	case errors.As(err, &runErr):
		return runErr.Kind
	case errors.Is(err, chainsync.ErrUnknownCertificate),
		errors.Is(err, chainsync.ErrMalformedEvent),
		errors.Is(err, operator.ErrContractViolation),
		errors.Is(err, operator.ErrMissingFact),
		errors.Is(err, ErrOutOfOrder):
		return ErrorKindStructural
	case errors.Is(err, ErrDivergence):
		return ErrorKindDivergence
	default:
		return ErrorKindFatal
	}
}
