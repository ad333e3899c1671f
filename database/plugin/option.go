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

package plugin

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
)

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = 1
	PluginOptionTypeBool   PluginOptionType = 2
	PluginOptionTypeInt    PluginOptionType = 3
	PluginOptionTypeUint   PluginOptionType = 4
)

var errNilDest = errors.New("nil destination")

// PluginOption describes a single plugin setting. Dest must point at a
// variable of the Go type matching Type.
type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	Type         PluginOptionType
}

func (p *PluginOption) AddToFlagSet(
	fs *pflag.FlagSet,
	pluginType string,
	pluginName string,
) error {
	flagName := fmt.Sprintf("%s-%s-%s", pluginType, pluginName, p.Name)
	if p.Dest == nil {
		return fmt.Errorf("option %s: %w", flagName, errNilDest)
	}
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		if !ok {
			return fmt.Errorf("option %s: destination is not *string", flagName)
		}
		defaultValue, _ := p.DefaultValue.(string)
		fs.StringVar(dest, flagName, defaultValue, p.Description)
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		if !ok {
			return fmt.Errorf("option %s: destination is not *bool", flagName)
		}
		defaultValue, _ := p.DefaultValue.(bool)
		fs.BoolVar(dest, flagName, defaultValue, p.Description)
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		if !ok {
			return fmt.Errorf("option %s: destination is not *int", flagName)
		}
		defaultValue, _ := p.DefaultValue.(int)
		fs.IntVar(dest, flagName, defaultValue, p.Description)
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		if !ok {
			return fmt.Errorf("option %s: destination is not *uint64", flagName)
		}
		defaultValue, _ := p.DefaultValue.(uint64)
		fs.Uint64Var(dest, flagName, defaultValue, p.Description)
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			p.Type,
			flagName,
		)
	}
	return nil
}

// ProcessConfig sets the option from a decoded config file value
func (p *PluginOption) ProcessConfig(value any) error {
	return p.setValue(value)
}

// ProcessEnvVar sets the option from its string form
func (p *PluginOption) ProcessEnvVar(value string) error {
	tmpValue, err := parseEnvValue(p.Type, value)
	if err != nil {
		return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
	}
	return p.setValue(tmpValue)
}

// setValue performs a type-checked assignment into Dest
func (p *PluginOption) setValue(value any) error {
	if p.Dest == nil {
		return fmt.Errorf("option %s: %w", p.Name, errNilDest)
	}
	switch p.Type {
	case PluginOptionTypeString:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf(
				"invalid type for option %s: expected string",
				p.Name,
			)
		}
		dest, ok := p.Dest.(*string)
		if !ok || dest == nil {
			return fmt.Errorf(
				"invalid destination type for option %s: expected *string",
				p.Name,
			)
		}
		*dest = v
	case PluginOptionTypeBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf(
				"invalid type for option %s: expected bool",
				p.Name,
			)
		}
		dest, ok := p.Dest.(*bool)
		if !ok || dest == nil {
			return fmt.Errorf(
				"invalid destination type for option %s: expected *bool",
				p.Name,
			)
		}
		*dest = v
	case PluginOptionTypeInt:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf(
				"invalid type for option %s: expected int",
				p.Name,
			)
		}
		dest, ok := p.Dest.(*int)
		if !ok || dest == nil {
			return fmt.Errorf(
				"invalid destination type for option %s: expected *int",
				p.Name,
			)
		}
		*dest = v
	case PluginOptionTypeUint:
		var v uint64
		// accept uint64 or int
		switch tv := value.(type) {
		case uint64:
			v = tv
		case int:
			if tv < 0 {
				return fmt.Errorf(
					"invalid value for option %s: negative int",
					p.Name,
				)
			}
			v = uint64(tv)
		default:
			return fmt.Errorf(
				"invalid type for option %s: expected uint64 or int",
				p.Name,
			)
		}
		dest, ok := p.Dest.(*uint64)
		if !ok || dest == nil {
			return fmt.Errorf(
				"invalid destination type for option %s: expected *uint64",
				p.Name,
			)
		}
		*dest = v
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			p.Type,
			p.Name,
		)
	}
	return nil
}
