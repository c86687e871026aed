// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/NHR-FAU/revolve-go/compress"
	"github.com/NHR-FAU/revolve-go/storage/lrucache"
)

// ByteSlab is the compressed tier: every Save/Push runs buffers through
// a compress.Compressor and appends the result into one growable byte
// arena, tracked by per-key offset/length/shape records. Grounded on
// original_source/pyrevolve/storage.py's BytesStorage, which keeps
// compressed ranges inside a single bytearray rather than one
// allocation per checkpoint.
//
// Decompressing the same slot repeatedly (Peek is called on every
// Reverse action while the top of the H-Revolve stack doesn't change)
// is wasted work, so decompressed results are cached with
// storage/lrucache, keyed by "key:index:generation".
type ByteSlab[T Element] struct {
	compress compress.Compressor
	decomp   compress.Decompressor
	dtype    compress.Dtype

	capacity uint32
	maxBytes int

	arena []byte
	slots map[uint32]byteSlabSlot

	cache      *lrucache.Cache
	ttl        time.Duration
	generation uint64

	stackTop int32
}

type byteSlabSlot struct {
	ranges []byteRange
	shapes [][]int
}

type byteRange struct {
	offset, length int
}

// ByteSlabConfig configures a ByteSlab tier.
type ByteSlabConfig struct {
	// Scheme and Params select the compressor via compress.Init.
	Scheme compress.Scheme
	Params compress.Params

	// MaxBytes bounds the arena; Save/Push fail with ErrOverflow once
	// exceeded. Zero means unbounded (bounded only by process memory).
	MaxBytes int

	// CacheBytes sizes the decompressed-peek cache. Zero disables
	// caching (every Peek/Load decompresses).
	CacheBytes int

	// CacheTTL is the expiry passed to lrucache.Cache.Get for each
	// decompressed entry. Zero defaults to one minute.
	CacheTTL time.Duration
}

// NewByteSlab builds a ByteSlab able to address capacity keys, whose
// elements are of type T.
func NewByteSlab[T Element](capacity uint32, cfg ByteSlabConfig) (*ByteSlab[T], error) {
	c, d, err := compress.Init(cfg.Scheme, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("storage: byteslab: %w", err)
	}

	var z T
	dtype := compress.Float64
	if _, ok := any(z).(float32); ok {
		dtype = compress.Float32
	}

	var cache *lrucache.Cache
	if cfg.CacheBytes > 0 {
		cache = lrucache.New(cfg.CacheBytes)
	}

	return &ByteSlab[T]{
		compress: c,
		decomp:   d,
		dtype:    dtype,
		capacity: capacity,
		maxBytes: cfg.MaxBytes,
		slots:    make(map[uint32]byteSlabSlot),
		cache:    cache,
		ttl:      cfg.CacheTTL,
		stackTop: -1,
	}, nil
}

func (b *ByteSlab[T]) Capacity() uint32 { return b.capacity }

func (b *ByteSlab[T]) cacheTTL(cfg time.Duration) time.Duration {
	if cfg <= 0 {
		return time.Minute
	}
	return cfg
}

func (b *ByteSlab[T]) Save(key uint32, buffers []Buffer[T]) error {
	if key >= b.capacity {
		return fmt.Errorf("storage: key %d out of range [0,%d)", key, b.capacity)
	}

	ranges := make([]byteRange, 0, len(buffers))
	shapes := make([][]int, 0, len(buffers))
	for _, buf := range buffers {
		raw := encodeElements(buf.Data)
		obj, err := b.compress(buf.Shape, b.dtype, raw)
		if err != nil {
			return fmt.Errorf("storage: byteslab: compress: %w", err)
		}
		if b.maxBytes > 0 && len(b.arena)+len(obj.Data) > b.maxBytes {
			return fmt.Errorf("%w: arena budget %d bytes exceeded", ErrOverflow, b.maxBytes)
		}
		offset := len(b.arena)
		b.arena = append(b.arena, obj.Data...)
		ranges = append(ranges, byteRange{offset: offset, length: len(obj.Data)})
		shapes = append(shapes, buf.Shape)
	}

	b.slots[key] = byteSlabSlot{ranges: ranges, shapes: shapes}
	atomic.AddUint64(&b.generation, 1)
	return nil
}

func (b *ByteSlab[T]) Load(key uint32, locations []Buffer[T]) error {
	slot, ok := b.slots[key]
	if !ok {
		return ErrUninitialized
	}
	if len(slot.ranges) != len(locations) {
		return fmt.Errorf("%w: %d buffers saved, %d requested", ErrShapeMismatch, len(slot.ranges), len(locations))
	}
	for i, loc := range locations {
		if !shapesEqual(slot.shapes[i], loc.Shape) {
			return fmt.Errorf("%w: buffer %d saved as %v, requested as %v", ErrShapeMismatch, i, slot.shapes[i], loc.Shape)
		}
	}

	for i, loc := range locations {
		raw, err := b.decompressRange(key, i, slot.ranges[i], loc.Shape)
		if err != nil {
			return err
		}
		decodeElements(raw, loc.Data)
	}
	return nil
}

func (b *ByteSlab[T]) decompressRange(key uint32, index int, r byteRange, shape []int) ([]byte, error) {
	if b.cache == nil {
		return b.decompressNow(r, shape)
	}

	cacheKey := fmt.Sprintf("%d:%d:%d", key, index, atomic.LoadUint64(&b.generation))
	result := b.cache.Get(cacheKey, func() (interface{}, time.Duration, int) {
		raw, err := b.decompressNow(r, shape)
		if err != nil {
			// Cache the error so repeated peeks don't all re-decompress;
			// the zero-length sentinel is unwrapped by the caller below.
			return decompressResult{err: err}, time.Second, 0
		}
		return decompressResult{data: raw}, b.cacheTTL(b.ttl), len(raw)
	})

	res := result.(decompressResult)
	if res.err != nil {
		return nil, res.err
	}
	return res.data, nil
}

type decompressResult struct {
	data []byte
	err  error
}

func (b *ByteSlab[T]) decompressNow(r byteRange, shape []int) ([]byte, error) {
	obj := compress.CompressedObject{
		Data:  b.arena[r.offset : r.offset+r.length],
		Shape: shape,
		Dtype: b.dtype,
	}
	raw, err := b.decomp(obj)
	if err != nil {
		return nil, fmt.Errorf("storage: byteslab: decompress: %w", err)
	}
	return raw, nil
}

func (b *ByteSlab[T]) Push(buffers []Buffer[T]) error {
	if b.stackTop >= int32(b.capacity)-1 {
		return ErrFull
	}
	b.stackTop++
	return b.Save(uint32(b.stackTop), buffers)
}

func (b *ByteSlab[T]) Peek(locations []Buffer[T]) error {
	if b.stackTop < 0 {
		return nil
	}
	return b.Load(uint32(b.stackTop), locations)
}

func (b *ByteSlab[T]) Pop(locations []Buffer[T]) error {
	if b.stackTop < 0 {
		return ErrEmpty
	}
	if err := b.Load(uint32(b.stackTop), locations); err != nil {
		return err
	}
	b.stackTop--
	return nil
}

func (b *ByteSlab[T]) Close() error { return nil }

func encodeElements[T Element](data []T) []byte {
	switch v := any(data).(type) {
	case []float32:
		return compress.EncodeFloats32(v)
	case []float64:
		return compress.EncodeFloats64(v)
	default:
		return nil
	}
}

func decodeElements[T Element](raw []byte, dst []T) {
	switch any(dst).(type) {
	case []float32:
		out := compress.DecodeFloats32(raw)
		for i := range dst {
			dst[i] = T(out[i])
		}
	case []float64:
		out := compress.DecodeFloats64(raw)
		for i := range dst {
			dst[i] = T(out[i])
		}
	}
}

var _ Tier[float64] = (*ByteSlab[float64])(nil)
