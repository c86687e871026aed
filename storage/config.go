// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/NHR-FAU/revolve-go/compress"
	"github.com/NHR-FAU/revolve-go/log"
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

// Config describes one tier's construction parameters as loaded from
// a user-supplied JSON document, validated against
// schemas/tier.schema.json before Build is attempted.
type Config struct {
	Kind     string          `json:"kind"`
	Capacity uint32          `json:"capacity"`
	SlotSize int             `json:"slotSize"`
	Dtype    string          `json:"dtype"`
	Disk     DiskSection     `json:"disk"`
	ByteSlab ByteSlabSection `json:"byteslab"`
	Object   ObjectSection   `json:"object"`
}

type DiskSection struct {
	FileDir    string `json:"fileDir"`
	SingleFile bool   `json:"singleFile"`
	KeepFiles  bool   `json:"keepFiles"`
}

type ByteSlabSection struct {
	Scheme          string `json:"scheme"`
	Level           int    `json:"level"`
	MaxBytes        int    `json:"maxBytes"`
	CacheBytes      int    `json:"cacheBytes"`
	CacheTTLSeconds int    `json:"cacheTTLSeconds"`
}

type ObjectSection struct {
	Endpoint     string `json:"endpoint"`
	Bucket       string `json:"bucket"`
	Prefix       string `json:"prefix"`
	Region       string `json:"region"`
	AccessKey    string `json:"accessKey"`
	SecretKey    string `json:"secretKey"`
	UsePathStyle bool   `json:"usePathStyle"`
}

// ValidateConfig checks data against schemas/tier.schema.json, matching
// pkg/schema/validate.go's embedFS-loader pattern.
func ValidateConfig(data []byte) error {
	s, err := jsonschema.Compile("embedFS://schemas/tier.schema.json")
	if err != nil {
		return fmt.Errorf("storage: compile schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		log.Errorf("storage.ValidateConfig() - failed to decode: %v", err)
		return fmt.Errorf("storage: decode config: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("storage: invalid tier config: %#v", err)
	}
	return nil
}

// LoadConfig validates and decodes r into a Config.
func LoadConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("storage: read config: %w", err)
	}
	if err := ValidateConfig(data); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("storage: decode config: %w", err)
	}
	return cfg, nil
}

// Build constructs the Tier[T] described by cfg. T must match
// cfg.Dtype ("float32" maps to T=float32, "float64" to T=float64);
// callers pick T by inspecting cfg.Dtype before calling Build.
func Build[T Element](ctx context.Context, cfg Config) (Tier[T], error) {
	switch cfg.Kind {
	case "memory":
		return NewMemory[T](cfg.Capacity, cfg.SlotSize), nil

	case "disk":
		return NewDisk[T](cfg.Capacity, cfg.SlotSize, DiskConfig{
			FileDir:    cfg.Disk.FileDir,
			SingleFile: cfg.Disk.SingleFile,
			KeepFiles:  cfg.Disk.KeepFiles,
		})

	case "byteslab":
		ttl := time.Duration(cfg.ByteSlab.CacheTTLSeconds) * time.Second
		return NewByteSlab[T](cfg.Capacity, ByteSlabConfig{
			Scheme:     compress.Scheme(cfg.ByteSlab.Scheme),
			Params:     compress.Params{Level: cfg.ByteSlab.Level},
			MaxBytes:   cfg.ByteSlab.MaxBytes,
			CacheBytes: cfg.ByteSlab.CacheBytes,
			CacheTTL:   ttl,
		})

	case "object":
		return NewObject[T](ctx, cfg.Capacity, ObjectConfig{
			Endpoint:     cfg.Object.Endpoint,
			Bucket:       cfg.Object.Bucket,
			Prefix:       cfg.Object.Prefix,
			Region:       cfg.Object.Region,
			AccessKey:    cfg.Object.AccessKey,
			SecretKey:    cfg.Object.SecretKey,
			UsePathStyle: cfg.Object.UsePathStyle,
		})

	default:
		return nil, fmt.Errorf("storage: unknown tier kind %q", cfg.Kind)
	}
}
