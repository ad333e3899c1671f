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

// Package operator derives facts from chain-sync events. Operators are pure
// functions that add one fact to an event and are composed into a Pipeline.
package operator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blinklabs-io/projector/chainsync"
)

var (
	ErrMissingFact       = errors.New("required fact not provided")
	ErrDuplicateFact     = errors.New("fact provided by more than one operator")
	ErrContractViolation = errors.New("operator violated the pipeline contract")
)

// Fact is a bit set of derived facts carried by an Event
type Fact uint16

const (
	FactCertificates Fact = 1 << iota
	FactStakeKeys
	FactUtxo
	FactMint
)

var factNames = []struct {
	fact Fact
	name string
}{
	{FactCertificates, "Certificates"},
	{FactStakeKeys, "StakeKeys"},
	{FactUtxo, "Utxo"},
	{FactMint, "Mint"},
}

func (f Fact) Has(other Fact) bool {
	return f&other == other
}

func (f Fact) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, tmp := range factNames {
		if f.Has(tmp.fact) {
			names = append(names, tmp.name)
		}
	}
	return strings.Join(names, "|")
}

// Event is a chain-sync event widened with derived facts. The embedded
// chain-sync event is never modified by an operator.
type Event struct {
	chainsync.Event
	StakeKeys    *StakeKeyDelta
	Utxo         *UtxoDelta
	Mint         *MintDelta
	Certificates []BlockCertificate
	facts        Fact
}

func NewEvent(evt chainsync.Event) Event {
	return Event{Event: evt}
}

// Facts returns the set of facts present on the event
func (e Event) Facts() Fact {
	return e.facts
}

func (e Event) withFact(f Fact) Event {
	e.facts |= f
	return e
}

// Func adds its fact to an event. It receives a copy and returns the
// widened copy.
type Func func(Event) (Event, error)

type Operator struct {
	Apply    Func
	Name     string
	Requires Fact
	Provides Fact
}

// Pipeline applies operators left to right
type Pipeline struct {
	operators []Operator
	provides  Fact
}

// NewPipeline composes operators, checking that every operator's required
// facts are provided by an operator earlier in the list
func NewPipeline(operators ...Operator) (*Pipeline, error) {
	p := &Pipeline{}
	for _, op := range operators {
		if op.Apply == nil || op.Provides == 0 {
			return nil, fmt.Errorf("operator %q is incomplete", op.Name)
		}
		if !p.provides.Has(op.Requires) {
			return nil, fmt.Errorf(
				"%w: operator %q requires %s, have %s",
				ErrMissingFact,
				op.Name,
				op.Requires,
				p.provides,
			)
		}
		if p.provides&op.Provides != 0 {
			return nil, fmt.Errorf(
				"%w: %s from operator %q",
				ErrDuplicateFact,
				p.provides&op.Provides,
				op.Name,
			)
		}
		p.provides |= op.Provides
		p.operators = append(p.operators, op)
	}
	return p, nil
}

// Provides returns the facts present on every event leaving the pipeline
func (p *Pipeline) Provides() Fact {
	return p.provides
}

func (p *Pipeline) Names() []string {
	ret := make([]string, 0, len(p.operators))
	for _, op := range p.operators {
		ret = append(ret, op.Name)
	}
	return ret
}

// Apply runs the event through every operator. Errors are structural and
// must not be retried.
func (p *Pipeline) Apply(evt chainsync.Event) (Event, error) {
	ret := NewEvent(evt)
	for _, op := range p.operators {
		out, err := op.Apply(ret)
		if err != nil {
			return Event{}, fmt.Errorf("operator %s: %w", op.Name, err)
		}
		if err := checkContract(op, ret, out); err != nil {
			return Event{}, err
		}
		ret = out
	}
	return ret, nil
}

func checkContract(op Operator, in Event, out Event) error {
	violation := func(reason string) error {
		return fmt.Errorf(
			"%w: operator %s %s",
			ErrContractViolation,
			op.Name,
			reason,
		)
	}
	if out.Type != in.Type || !chainsync.SamePoint(out.Point, in.Point) {
		return violation("changed event type or point")
	}
	if out.Block != in.Block {
		return violation("replaced block")
	}
	if out.facts != in.facts|op.Provides {
		return violation(
			fmt.Sprintf("produced facts %s, expected %s", out.facts, in.facts|op.Provides),
		)
	}
	if in.facts.Has(FactStakeKeys) && out.StakeKeys != in.StakeKeys {
		return violation("modified StakeKeys")
	}
	if in.facts.Has(FactUtxo) && out.Utxo != in.Utxo {
		return violation("modified Utxo")
	}
	if in.facts.Has(FactMint) && out.Mint != in.Mint {
		return violation("modified Mint")
	}
	if in.facts.Has(FactCertificates) &&
		len(out.Certificates) != len(in.Certificates) {
		return violation("modified Certificates")
	}
	return nil
}
