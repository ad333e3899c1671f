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
	"slices"

	"github.com/blinklabs-io/projector/chainsync"
)

// StakeKeyDelta is the net effect of one event on the active stake-key set.
// Insert and Del are disjoint and duplicate-free.
type StakeKeyDelta struct {
	Insert []chainsync.Credential
	Del    []chainsync.Credential
}

// Inverse swaps the insert and delete sets
func (d StakeKeyDelta) Inverse() StakeKeyDelta {
	return StakeKeyDelta{
		Insert: slices.Clone(d.Del),
		Del:    slices.Clone(d.Insert),
	}
}

func (d StakeKeyDelta) Empty() bool {
	return len(d.Insert) == 0 && len(d.Del) == 0
}

// credentialSet keeps insertion order so deltas are deterministic
type credentialSet struct {
	index map[chainsync.Credential]int
	items []chainsync.Credential
}

func newCredentialSet() *credentialSet {
	return &credentialSet{index: make(map[chainsync.Credential]int)}
}

func (s *credentialSet) has(c chainsync.Credential) bool {
	_, ok := s.index[c]
	return ok
}

func (s *credentialSet) add(c chainsync.Credential) {
	if s.has(c) {
		return
	}
	s.index[c] = len(s.items)
	s.items = append(s.items, c)
}

func (s *credentialSet) remove(c chainsync.Credential) {
	idx, ok := s.index[c]
	if !ok {
		return
	}
	s.items = slices.Delete(s.items, idx, idx+1)
	delete(s.index, c)
	for i := idx; i < len(s.items); i++ {
		s.index[s.items[i]] = i
	}
}

func (s *credentialSet) list() []chainsync.Credential {
	return slices.Clone(s.items)
}

// WithStakeKeys derives the stake keys registered and deregistered by the
// event. A registration cancels a pending deregistration of the same key
// and the reverse. On a roll backward the delta is inverted.
func WithStakeKeys() Operator {
	return Operator{
		Name:     "WithStakeKeys",
		Requires: FactCertificates,
		Provides: FactStakeKeys,
		Apply:    withStakeKeys,
	}
}

func withStakeKeys(evt Event) (Event, error) {
	register := newCredentialSet()
	deregister := newCredentialSet()
	for _, blockCert := range evt.Certificates {
		effect, err := blockCert.Certificate.Type().StakeEffect()
		if err != nil {
			return evt, err
		}
		cred := blockCert.Certificate.Subject()
		switch effect {
		case chainsync.StakeEffectRegister:
			if deregister.has(cred) {
				deregister.remove(cred)
			} else {
				register.add(cred)
			}
		case chainsync.StakeEffectDeregister:
			if register.has(cred) {
				register.remove(cred)
			} else {
				deregister.add(cred)
			}
		case chainsync.StakeEffectNone:
		}
	}
	delta := StakeKeyDelta{
		Insert: register.list(),
		Del:    deregister.list(),
	}
	if evt.Type == chainsync.EventTypeRollBackward {
		delta = delta.Inverse()
	}
	evt.StakeKeys = &delta
	return evt.withFact(FactStakeKeys), nil
}
