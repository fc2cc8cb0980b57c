// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package export writes tables as CSV or Parquet.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/OpenPSG/rectable"
)

// IndexHeader is the name of the index column.
const IndexHeader = "time"

// CSV writes the table with a header row. Missing cells are left empty.
func CSV(w io.Writer, t *rectable.Table) error {
	cw := csv.NewWriter(w)

	record := make([]string, len(t.Columns)+1)
	record[0] = IndexHeader
	for i, c := range t.Columns {
		record[i+1] = c.Name
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for row := range t.Index {
		record[0] = FormatIndex(t.Format, t.Index[row])
		for i := range t.Columns {
			record[i+1] = ""
			if v, ok := t.Columns[i].Value(row); ok {
				record[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatIndex renders one index value in the given format.
func FormatIndex(f rectable.TimestampFormat, ts rectable.Timestamp) string {
	switch f {
	case rectable.TimestampNone:
		return strconv.Itoa(ts.Index)
	case rectable.TimestampUTC, rectable.TimestampLocal:
		return ts.Time.Format(time.RFC3339Nano)
	default:
		return strconv.FormatFloat(ts.Seconds, 'g', -1, 64)
	}
}
