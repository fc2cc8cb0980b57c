// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/OpenPSG/rectable"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) (CompressionType, error) {
	switch s {
	case "none", "":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "gzip":
		return CompressionGzip, nil
	default:
		return CompressionNone, fmt.Errorf("unknown parquet compression %q", s)
	}
}

func (ct CompressionType) codec() compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ParquetOptions configures the Parquet writer.
type ParquetOptions struct {
	Compression CompressionType

	// BatchSize is the number of cells buffered per write call.
	BatchSize int
}

// DefaultParquetOptions returns default Parquet options.
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression: CompressionZstd,
		BatchSize:   8192,
	}
}

// CellRow is one table cell in long format.
type CellRow struct {
	Row          int64   `parquet:"row"`
	Seconds      float64 `parquet:"seconds"`
	TimeUnixNano int64   `parquet:"time_unix_nano,optional"`
	Channel      string  `parquet:"channel,dict"`
	Unit         string  `parquet:"unit,dict"`
	Value        float64 `parquet:"value"`
	Valid        bool    `parquet:"valid"`
}

// Parquet writes the table in long format, one CellRow per row and column.
func Parquet(w io.Writer, t *rectable.Table, opts ParquetOptions) error {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultParquetOptions().BatchSize
	}

	pw := parquet.NewGenericWriter[CellRow](w, parquet.Compression(opts.Compression.codec()))

	absolute := t.Format == rectable.TimestampUTC || t.Format == rectable.TimestampLocal
	batch := make([]CellRow, 0, opts.BatchSize)
	flush := func() error {
		if _, err := pw.Write(batch); err != nil {
			return fmt.Errorf("error writing rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for row, ts := range t.Index {
		for i := range t.Columns {
			v, ok := t.Columns[i].Value(row)
			cell := CellRow{
				Row:     int64(row),
				Seconds: ts.Seconds,
				Channel: t.Columns[i].Name,
				Unit:    t.Columns[i].Unit,
				Value:   v,
				Valid:   ok,
			}
			if absolute {
				cell.TimeUnixNano = ts.Time.UnixNano()
			}
			batch = append(batch, cell)

			if len(batch) == cap(batch) {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return err
		}
	}

	if err := pw.Close(); err != nil {
		return fmt.Errorf("error closing parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads cells written by Parquet.
func ReadParquet(r io.ReaderAt) ([]CellRow, error) {
	pr := parquet.NewGenericReader[CellRow](r)
	defer pr.Close()

	rows := make([]CellRow, pr.NumRows())
	n, err := pr.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return rows[:n], nil
}
