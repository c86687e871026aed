// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/NHR-FAU/revolve-go/log"
)

// Disk is the file-backed tier: either a single append-friendly binary
// file (seek to key*slotSize*itemsize) or one file per key. Grounded on
// pkg/archive/fsBackend.go's directory layout and filename scheme and
// on original_source/pyrevolve/storage.py's DiskStorage (single vs.
// multi-file, seek-by-offset, remove-on-destruction).
//
// Disk format: raw little-endian contiguous elements, no header —
// shapes exist only in memory and are lost if the process dies, per
// spec §6.
type Disk[T Element] struct {
	dir        string
	capacity   uint32
	slotSize   int
	singleFile bool
	keepFiles  bool

	f      *os.File
	shapes map[uint32][][]int
	stackTop int32
}

// DiskConfig configures a Disk tier.
type DiskConfig struct {
	// FileDir is the base directory; a "dat/" subdirectory is created
	// inside it, matching the teacher's fsBackend layout.
	FileDir string
	// SingleFile selects one append-friendly file (seek-addressed) vs.
	// one file per checkpoint key.
	SingleFile bool
	// KeepFiles, if true, skips removing the backing directory on Close.
	KeepFiles bool
}

// NewDisk creates the backing directory (and, in single-file mode, the
// backing file) for capacity slots of up to slotSize elements each.
func NewDisk[T Element](capacity uint32, slotSize int, cfg DiskConfig) (*Disk[T], error) {
	dir := cfg.FileDir
	if dir == "" {
		dir = "./"
	}
	dir = filepath.Join(dir, "dat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}

	d := &Disk[T]{
		dir:        dir,
		capacity:   capacity,
		slotSize:   slotSize,
		singleFile: cfg.SingleFile,
		keepFiles:  cfg.KeepFiles,
		shapes:     make(map[uint32][][]int),
		stackTop:   -1,
	}

	if d.singleFile {
		name := filepath.Join(dir, fmt.Sprintf("CKP_D%s_PID%d.dat",
			time.Now().Format("20060102-150405"), os.Getpid()))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("storage: open %s: %w", name, err)
		}
		d.f = f
	}

	return d, nil
}

func (d *Disk[T]) Capacity() uint32 { return d.capacity }

func (d *Disk[T]) itemSize() int64 {
	var z T
	return int64(reflectSizeOf(z))
}

func reflectSizeOf[T Element](z T) int {
	switch any(z).(type) {
	case float32:
		return 4
	case float64:
		return 8
	default:
		return 8
	}
}

func (d *Disk[T]) keyFile(key uint32) string {
	return filepath.Join(d.dir, fmt.Sprintf("CKP_PID%d.k%d.dat", os.Getpid(), key))
}

func (d *Disk[T]) Save(key uint32, buffers []Buffer[T]) error {
	if key >= d.capacity {
		return fmt.Errorf("storage: key %d out of range [0,%d)", key, d.capacity)
	}

	total := 0
	for _, b := range buffers {
		total += b.Len()
	}
	if total > d.slotSize {
		return fmt.Errorf("%w: slot holds %d elements, %d requested", ErrOverflow, d.slotSize, total)
	}

	var f *os.File
	if d.singleFile {
		offset := int64(key) * int64(d.slotSize) * d.itemSize()
		if _, err := d.f.Seek(offset, os.SEEK_SET); err != nil {
			return fmt.Errorf("storage: seek: %w", err)
		}
		f = d.f
	} else {
		ff, err := os.OpenFile(d.keyFile(key), os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("storage: open: %w", err)
		}
		defer ff.Close()
		f = ff
	}

	w := bufio.NewWriter(f)
	shapes := make([][]int, 0, len(buffers))
	for _, b := range buffers {
		if err := writeElements(w, b.Data); err != nil {
			return fmt.Errorf("storage: write: %w", err)
		}
		shapes = append(shapes, b.Shape)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("storage: flush: %w", err)
	}
	d.shapes[key] = shapes
	return nil
}

func (d *Disk[T]) Load(key uint32, locations []Buffer[T]) error {
	shapes, ok := d.shapes[key]
	if !ok {
		return ErrUninitialized
	}
	if len(shapes) != len(locations) {
		return fmt.Errorf("%w: %d buffers saved, %d requested", ErrShapeMismatch, len(shapes), len(locations))
	}
	for i, loc := range locations {
		if !shapesEqual(shapes[i], loc.Shape) {
			return fmt.Errorf("%w: buffer %d saved as %v, requested as %v", ErrShapeMismatch, i, shapes[i], loc.Shape)
		}
	}

	var f *os.File
	if d.singleFile {
		offset := int64(key) * int64(d.slotSize) * d.itemSize()
		if _, err := d.f.Seek(offset, os.SEEK_SET); err != nil {
			return fmt.Errorf("storage: seek: %w", err)
		}
		f = d.f
	} else {
		ff, err := os.Open(d.keyFile(key))
		if err != nil {
			return fmt.Errorf("storage: open: %w", err)
		}
		defer ff.Close()
		f = ff
	}

	r := bufio.NewReader(f)
	for _, loc := range locations {
		if err := readElements(r, loc.Data); err != nil {
			return fmt.Errorf("storage: read: %w", err)
		}
	}
	return nil
}

func (d *Disk[T]) Push(buffers []Buffer[T]) error {
	if d.stackTop >= int32(d.capacity)-1 {
		return ErrFull
	}
	d.stackTop++
	return d.Save(uint32(d.stackTop), buffers)
}

func (d *Disk[T]) Peek(locations []Buffer[T]) error {
	if d.stackTop < 0 {
		return nil
	}
	return d.Load(uint32(d.stackTop), locations)
}

func (d *Disk[T]) Pop(locations []Buffer[T]) error {
	if d.stackTop < 0 {
		return ErrEmpty
	}
	if err := d.Load(uint32(d.stackTop), locations); err != nil {
		return err
	}
	d.stackTop--
	return nil
}

// Close flushes and closes the backing file (single-file mode) and
// removes the directory unless KeepFiles was set, matching
// DiskStorage.__del__ in the Python original.
func (d *Disk[T]) Close() error {
	if d.f != nil {
		if err := d.f.Close(); err != nil {
			log.Warnf("storage: close backing file: %v", err)
		}
	}
	if !d.keepFiles {
		if err := os.RemoveAll(d.dir); err != nil {
			return fmt.Errorf("storage: remove %s: %w", d.dir, err)
		}
	}
	return nil
}

func writeElements[T Element](w *bufio.Writer, data []T) error {
	buf := make([]byte, 8)
	for _, v := range data {
		switch x := any(v).(type) {
		case float32:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
			if _, err := w.Write(buf[:4]); err != nil {
				return err
			}
		case float64:
			binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
			if _, err := w.Write(buf[:8]); err != nil {
				return err
			}
		}
	}
	return nil
}

func readElements[T Element](r *bufio.Reader, data []T) error {
	buf := make([]byte, 8)
	for i := range data {
		switch any(data[i]).(type) {
		case float32:
			if _, err := readFull(r, buf[:4]); err != nil {
				return err
			}
			data[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(buf[:4])))
		case float64:
			if _, err := readFull(r, buf[:8]); err != nil {
				return err
			}
			data[i] = T(math.Float64frombits(binary.LittleEndian.Uint64(buf[:8])))
		}
	}
	return nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

var _ Tier[float64] = (*Disk[float64])(nil)
