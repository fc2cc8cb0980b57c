// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package rectable

// Table is the result of a query. Rows are ordered by timestamp and every
// column holds exactly one cell per row.
type Table struct {
	Format  TimestampFormat // Representation of Index
	Index   []Timestamp     // One timestamp per row
	Columns []Column        // One column per requested channel, in request order
}

// Column holds the cells of one channel.
type Column struct {
	Name       string
	Unit       string
	Discipline Discipline
	Values     []float64 // Cell values, zero where missing
	Valid      []bool    // False marks a missing cell
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return len(t.Index) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.Index) == 0 }

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Value returns the cell at row i and whether it is present.
func (c *Column) Value(i int) (float64, bool) {
	return c.Values[i], c.Valid[i]
}

// assemble joins the series onto the rows of the first one. For TimestampNone
// secondary channels are aligned by position, otherwise by exact timestamp.
func assemble(all []series, format TimestampFormat) *Table {
	t := &Table{Format: format}
	if len(all) == 0 {
		return t
	}

	driving := all[0].points
	t.Index = make([]Timestamp, len(driving))
	for i, p := range driving {
		t.Index[i] = p.at
		if format == TimestampNone {
			t.Index[i] = Timestamp{Index: i}
		}
	}

	t.Columns = make([]Column, len(all))
	for c, s := range all {
		col := Column{
			Name:       s.info.Name,
			Unit:       s.info.Unit,
			Discipline: s.info.Discipline,
			Values:     make([]float64, len(driving)),
			Valid:      make([]bool, len(driving)),
		}

		switch {
		case c == 0, format == TimestampNone:
			for i := 0; i < len(driving) && i < len(s.points); i++ {
				col.Values[i] = s.points[i].value
				col.Valid[i] = true
			}
		default:
			joinExact(driving, s.points, &col)
		}

		t.Columns[c] = col
	}
	return t
}

// joinExact left joins other onto driving by key. Both inputs are ordered;
// each secondary point fills at most one cell.
func joinExact(driving, other []point, col *Column) {
	j := 0
	for i, p := range driving {
		for j < len(other) && other[j].key < p.key {
			j++
		}
		if j < len(other) && other[j].key == p.key {
			col.Values[i] = other[j].value
			col.Valid[i] = true
			j++
		}
	}
}
