// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the demo binary's program configuration,
// grounded on internal/config's Keys-var-plus-Init(flagConfigFile)
// pattern and pkg/schema's embedFS JSON-Schema validation, trimmed to
// the one top-level document a checkpointing run needs.
package config

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/NHR-FAU/revolve-go/arch"
	"github.com/NHR-FAU/revolve-go/storage"
)

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchema(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchema
}

// TierConfig is one storage.Config plus the write/read cost the
// H-Revolve planner needs for that tier and the raw bytes it was
// decoded from, kept around so storage.ValidateConfig can re-validate
// it independently against storage's own, narrower schema.
type TierConfig struct {
	storage.Config
	WriteCost float64 `json:"writeCost"`
	ReadCost  float64 `json:"readCost"`

	raw json.RawMessage
}

// ArchTier converts to the arch.Tier the planner consumes.
func (c TierConfig) ArchTier() arch.Tier {
	return arch.Tier{Size: c.Capacity, W: c.WriteCost, R: c.ReadCost}
}

// StorageFactors are the per-forward-step/per-backward-step costs §4.3's
// DP recurrence calls uf/ub, applied uniformly across every tier.
type StorageFactors struct {
	Uf float64 `json:"uf"`
	Ub float64 `json:"ub"`
}

// Program is the full configuration for one checkpointed run: which
// scheduler to drive, the timeline length, the storage hierarchy, and
// where profiling samples get persisted.
type Program struct {
	Dtype                string         `json:"dtype"`
	Timesteps            uint32         `json:"timesteps"`
	Scheduler            string         `json:"scheduler"`
	Checkpoints          uint32         `json:"checkpoints"`
	StorageFactors       StorageFactors `json:"storageFactors"`
	Tiers                []TierConfig   `json:"tiers"`
	ProfilerDB           string         `json:"profilerDB"`
	FlushIntervalSeconds int            `json:"flushIntervalSeconds"`
	LogLevel             string         `json:"logLevel"`
}

// UnmarshalJSON decodes a tier entry and also keeps its raw bytes so
// storage.ValidateConfig can be run against it later.
func (c *TierConfig) UnmarshalJSON(data []byte) error {
	c.raw = append(json.RawMessage(nil), data...)

	type alias struct {
		storage.Config
		WriteCost float64 `json:"writeCost"`
		ReadCost  float64 `json:"readCost"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	c.Config = a.Config
	c.WriteCost = a.WriteCost
	c.ReadCost = a.ReadCost
	return nil
}

// Raw returns the tier's original JSON bytes.
func (c TierConfig) Raw() []byte { return c.raw }

// Keys holds the defaults Init starts from, mirroring internal/config's
// package-level Keys var — callers read it after Init returns.
var Keys = Program{
	Dtype:                "float64",
	Scheduler:            "revolve",
	StorageFactors:       StorageFactors{Uf: 1, Ub: 1},
	ProfilerDB:           "./var/profile.db",
	FlushIntervalSeconds: 30,
	LogLevel:             "info",
}

// Architecture builds the arch.Architecture the H-Revolve planner
// needs from the configured tiers, in the order they were listed.
func (p Program) Architecture() (arch.Architecture, error) {
	tiers := make([]arch.Tier, len(p.Tiers))
	for i, t := range p.Tiers {
		tiers[i] = t.ArchTier()
	}
	return arch.New(tiers)
}

// Init loads optional .env overrides via godotenv, then reads,
// JSON-Schema-validates, and decodes flagConfigFile into Keys. A
// missing config file is not an error — the caller runs with defaults.
func Init(flagConfigFile string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("config: load .env: %w", err)
	}

	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", flagConfigFile, err)
	}

	if err := validate(raw); err != nil {
		return fmt.Errorf("config: validate %s: %w", flagConfigFile, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("config: decode %s: %w", flagConfigFile, err)
	}

	for i, t := range Keys.Tiers {
		if err := storage.ValidateConfig(t.Raw()); err != nil {
			return fmt.Errorf("config: tier %d: %w", i, err)
		}
	}

	if Keys.Scheduler == "revolve" && Keys.Checkpoints == 0 {
		return fmt.Errorf("config: scheduler \"revolve\" requires checkpoints > 0")
	}

	return nil
}

func validate(data []byte) error {
	s, err := jsonschema.Compile("embedFS://schemas/program.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%#v", err)
	}
	return nil
}
