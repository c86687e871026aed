// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object is the slowest, largest tier: one PutObject/GetObject round
// trip per slot against an S3-compatible bucket, grounded on
// pkg/archive/parquet/target.go's S3Target. Slot keys are mapped to
// object names "<prefix>/ckp-<key>.bin"; shapes are kept in memory
// only, matching the disk tier's "no header" invariant from spec §6 —
// an object store has no cheap place to stash per-slot metadata
// without a second round trip.
type Object[T Element] struct {
	client *s3.Client
	bucket string
	prefix string

	capacity uint32
	shapes   map[uint32][][]int
	stackTop int32
}

// ObjectConfig configures an Object tier.
type ObjectConfig struct {
	Endpoint     string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	Region       string
	UsePathStyle bool
}

// NewObject constructs the S3 client and validates the bucket name.
// No network call is made until the first Save/Push.
func NewObject[T Element](ctx context.Context, capacity uint32, cfg ObjectConfig) (*Object[T], error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: object: empty bucket name")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: object: load AWS config: %w", err)
	}

	opts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}

	return &Object[T]{
		client:   s3.NewFromConfig(awsCfg, opts),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		capacity: capacity,
		shapes:   make(map[uint32][][]int),
		stackTop: -1,
	}, nil
}

func (o *Object[T]) Capacity() uint32 { return o.capacity }

func (o *Object[T]) objectKey(key uint32) string {
	if o.prefix == "" {
		return fmt.Sprintf("ckp-%d.bin", key)
	}
	return fmt.Sprintf("%s/ckp-%d.bin", o.prefix, key)
}

func (o *Object[T]) Save(key uint32, buffers []Buffer[T]) error {
	if key >= o.capacity {
		return fmt.Errorf("storage: key %d out of range [0,%d)", key, o.capacity)
	}

	var body bytes.Buffer
	shapes := make([][]int, 0, len(buffers))
	for _, buf := range buffers {
		body.Write(encodeElements(buf.Data))
		shapes = append(shapes, buf.Shape)
	}

	ctx := context.Background()
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.objectKey(key)),
		Body:   bytes.NewReader(body.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("storage: object: put %q: %w", o.objectKey(key), err)
	}

	o.shapes[key] = shapes
	return nil
}

func (o *Object[T]) Load(key uint32, locations []Buffer[T]) error {
	shapes, ok := o.shapes[key]
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

	ctx := context.Background()
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("storage: object: get %q: %w", o.objectKey(key), err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("storage: object: read %q: %w", o.objectKey(key), err)
	}

	offset := 0
	itemSize := itemSizeOf[T]()
	for _, loc := range locations {
		n := loc.Len() * itemSize
		decodeElements(raw[offset:offset+n], loc.Data)
		offset += n
	}
	return nil
}

func itemSizeOf[T Element]() int {
	var z T
	if _, ok := any(z).(float32); ok {
		return 4
	}
	return 8
}

func (o *Object[T]) Push(buffers []Buffer[T]) error {
	if o.stackTop >= int32(o.capacity)-1 {
		return ErrFull
	}
	o.stackTop++
	return o.Save(uint32(o.stackTop), buffers)
}

func (o *Object[T]) Peek(locations []Buffer[T]) error {
	if o.stackTop < 0 {
		return nil
	}
	return o.Load(uint32(o.stackTop), locations)
}

func (o *Object[T]) Pop(locations []Buffer[T]) error {
	if o.stackTop < 0 {
		return ErrEmpty
	}
	if err := o.Load(uint32(o.stackTop), locations); err != nil {
		return err
	}
	o.stackTop--
	return nil
}

func (o *Object[T]) Close() error { return nil }

var _ Tier[float64] = (*Object[float64])(nil)
