// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package compress implements the compression adapter plugged into the
// byte-slab storage tier: a (Compressor, Decompressor) pair produced by
// a scheme registry, grounded on
// original_source/pyrevolve/compression.py's module-level registry of
// named schemes.
package compress

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

// Scheme names one of the registered compression algorithms.
type Scheme string

const (
	Zstd   Scheme = "zstd"
	Gzip   Scheme = "gzip"
	Custom Scheme = "custom"
)

// Dtype records the element type a CompressedObject was built from, so
// Decompress can reconstruct the right width without the caller
// re-stating it.
type Dtype int

const (
	Float32 Dtype = iota
	Float64
)

// CompressedObject is the opaque result of a Compressor call: the
// compressed bytes plus enough metadata to decompress and reshape
// them. Metadata must round-trip bit-for-bit between Compress and
// Decompress, per spec §6.
type CompressedObject struct {
	Data     []byte
	Shape    []int
	Dtype    Dtype
	Metadata map[string]any
}

// Compressor turns one buffer's raw elements into a CompressedObject.
type Compressor func(shape []int, dtype Dtype, raw []byte) (CompressedObject, error)

// Decompressor turns a CompressedObject back into raw little-endian
// element bytes.
type Decompressor func(obj CompressedObject) ([]byte, error)

// Params configures scheme construction. Level is used by Zstd/Gzip;
// CustomCompress/CustomDecompress are required (and only used) for
// Custom.
type Params struct {
	Level            int
	CustomCompress   func(shape []int, dtype Dtype, raw []byte) (CompressedObject, error)
	CustomDecompress func(obj CompressedObject) ([]byte, error)
}

// Init returns the (compressor, decompressor) pair for scheme,
// matching original_source/pyrevolve/compression.py's
// init_compression({scheme, ...params}) factory.
func Init(scheme Scheme, params Params) (Compressor, Decompressor, error) {
	switch scheme {
	case Zstd:
		return zstdPair(params)
	case Gzip:
		return gzipPair(params)
	case Custom:
		if params.CustomCompress == nil || params.CustomDecompress == nil {
			return nil, nil, fmt.Errorf("compress: custom scheme requires both CustomCompress and CustomDecompress")
		}
		return params.CustomCompress, params.CustomDecompress, nil
	default:
		return nil, nil, fmt.Errorf("compress: unknown scheme %q", scheme)
	}
}

func zstdPair(params Params) (Compressor, Decompressor, error) {
	level := zstd.EncoderLevel(params.Level)
	if params.Level == 0 {
		level = zstd.SpeedDefault
	}

	compress := func(shape []int, dtype Dtype, raw []byte) (CompressedObject, error) {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			return CompressedObject{}, fmt.Errorf("compress: zstd encoder: %w", err)
		}
		defer enc.Close()
		data := enc.EncodeAll(raw, nil)
		return CompressedObject{Data: data, Shape: shape, Dtype: dtype}, nil
	}

	decompress := func(obj CompressedObject) ([]byte, error) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(obj.Data, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd decode: %w", err)
		}
		return out, nil
	}

	return compress, decompress, nil
}

func gzipPair(params Params) (Compressor, Decompressor, error) {
	level := params.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	compress := func(shape []int, dtype Dtype, raw []byte) (CompressedObject, error) {
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return CompressedObject{}, fmt.Errorf("compress: gzip writer: %w", err)
		}
		if _, err := w.Write(raw); err != nil {
			return CompressedObject{}, fmt.Errorf("compress: gzip write: %w", err)
		}
		if err := w.Close(); err != nil {
			return CompressedObject{}, fmt.Errorf("compress: gzip close: %w", err)
		}
		return CompressedObject{Data: buf.Bytes(), Shape: shape, Dtype: dtype}, nil
	}

	decompress := func(obj CompressedObject) ([]byte, error) {
		r, err := gzip.NewReader(bytes.NewReader(obj.Data))
		if err != nil {
			return nil, fmt.Errorf("compress: gzip reader: %w", err)
		}
		defer r.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("compress: gzip read: %w", err)
		}
		return buf.Bytes(), nil
	}

	return compress, decompress, nil
}

// EncodeFloats32 serializes a float32 slice to little-endian
// bytes, the wire representation stored inside a byte-slab slot.
func EncodeFloats32(data []float32) []byte {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func EncodeFloats64(data []float64) []byte {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func DecodeFloats32(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func DecodeFloats64(buf []byte) []float64 {
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}
