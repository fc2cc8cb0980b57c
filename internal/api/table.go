// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/rectable"
	"github.com/OpenPSG/rectable/export"
	"github.com/gin-gonic/gin"
)

// TableAPI serves the channels and tables of one recording.
type TableAPI struct {
	reader   *rectable.Reader
	log      *slog.Logger
	channels []string
	format   rectable.TimestampFormat
}

// NewTableAPI returns the API over r. channels and format are used when a
// request does not name its own.
func NewTableAPI(r *rectable.Reader, log *slog.Logger, channels []string, format rectable.TimestampFormat) TableAPI {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return TableAPI{reader: r, log: log, channels: channels, format: format}
}

// RegisterTable registers the table routes on g.
func RegisterTable(g gin.IRouter, api TableAPI, handler ...gin.HandlerFunc) {
	group := g.Group("", handler...)
	group.GET("/channels", api.listChannels)
	group.GET("/table", api.getTable)
	group.GET("/table.csv", api.getTableCSV)
}

type channelOutput struct {
	Name       string   `json:"name"`
	Unit       string   `json:"unit"`
	Discipline string   `json:"discipline"`
	Rate       float64  `json:"rate,omitempty"`
	Sweeps     int      `json:"sweeps"`
	Start      *float64 `json:"start"`
	End        *float64 `json:"end"`
}

func (a TableAPI) listChannels(c *gin.Context) {
	names, err := a.reader.Channels()
	if err != nil {
		abortWithError(c, a.log, err)
		return
	}

	out := make([]channelOutput, 0, len(names))
	for _, name := range names {
		info, err := a.reader.ChannelInfo(name)
		if err != nil {
			abortWithError(c, a.log, err)
			return
		}
		sweeps, err := a.reader.Sweeps(name)
		if err != nil {
			abortWithError(c, a.log, err)
			return
		}
		min, max, ok, err := a.reader.Extent(name)
		if err != nil {
			abortWithError(c, a.log, err)
			return
		}

		ch := channelOutput{
			Name:       info.Name,
			Unit:       info.Unit,
			Discipline: info.Discipline.String(),
			Rate:       info.Rate,
			Sweeps:     len(sweeps),
		}
		if ok {
			ch.Start, ch.End = &min, &max
		}
		out = append(out, ch)
	}

	c.JSON(http.StatusOK, gin.H{"channels": out})
}

type columnOutput struct {
	Name   string     `json:"name"`
	Unit   string     `json:"unit"`
	Values []*float64 `json:"values"`
}

type tableOutput struct {
	Format  string         `json:"format"`
	Index   []any          `json:"index"`
	Columns []columnOutput `json:"columns"`
}

func (a TableAPI) getTable(c *gin.Context) {
	t, ok := a.readTable(c)
	if !ok {
		return
	}

	out := tableOutput{
		Format:  t.Format.String(),
		Index:   make([]any, t.Rows()),
		Columns: make([]columnOutput, len(t.Columns)),
	}
	for i, ts := range t.Index {
		switch t.Format {
		case rectable.TimestampNone:
			out.Index[i] = ts.Index
		case rectable.TimestampUTC, rectable.TimestampLocal:
			out.Index[i] = ts.Time.Format(time.RFC3339Nano)
		default:
			out.Index[i] = ts.Seconds
		}
	}
	for j := range t.Columns {
		col := &t.Columns[j]
		values := make([]*float64, t.Rows())
		for i := range values {
			if v, ok := col.Value(i); ok {
				values[i] = &v
			}
		}
		out.Columns[j] = columnOutput{Name: col.Name, Unit: col.Unit, Values: values}
	}

	c.JSON(http.StatusOK, out)
}

func (a TableAPI) getTableCSV(c *gin.Context) {
	t, ok := a.readTable(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.CSV(c.Writer, t); err != nil {
		a.log.ErrorContext(c.Request.Context(), "error writing csv", "err", err)
	}
}

// readTable runs the query described by the request parameters. On failure
// the response has been written and ok is false.
func (a TableAPI) readTable(c *gin.Context) (*rectable.Table, bool) {
	q, err := a.parseQuery(c)
	if err == nil {
		var t *rectable.Table
		if t, err = a.reader.ReadTable(q); err == nil {
			return t, true
		}
	}
	abortWithError(c, a.log, err)
	return nil, false
}

func (a TableAPI) parseQuery(c *gin.Context) (rectable.Query, error) {
	q := rectable.Query{Format: a.format}

	for _, v := range c.QueryArray("channel") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				q.Channels = append(q.Channels, name)
			}
		}
	}
	if len(q.Channels) == 0 {
		q.Channels = a.channels
	}

	if v, ok := c.GetQuery("format"); ok {
		f, err := rectable.ParseTimestampFormat(v)
		if err != nil {
			return q, err
		}
		q.Format = f
	}

	start, hasStart, err := parseBound(c, "start")
	if err != nil {
		return q, err
	}
	end, hasEnd, err := parseBound(c, "end")
	if err != nil {
		return q, err
	}
	q.Window = rectable.Window{Start: start, End: end, HasStart: hasStart, HasEnd: hasEnd}

	return q, nil
}

func parseBound(c *gin.Context, key string) (float64, bool, error) {
	v := c.Query(key)
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: invalid %s %q", rectable.ErrConfiguration, key, v)
	}
	return f, true, nil
}
