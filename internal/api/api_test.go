// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OpenPSG/rectable"
	"github.com/OpenPSG/rectable/internal/api"
	"github.com/OpenPSG/rectable/memstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := rectable.NewReader(memstore.Demo())
	return api.NewRouter(api.NewTableAPI(r, nil, []string{"Sine"}, rectable.TimestampSeconds))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestChannels(t *testing.T) {
	w := get(t, newServer(t), "/channels")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Channels []struct {
			Name       string   `json:"name"`
			Discipline string   `json:"discipline"`
			Rate       float64  `json:"rate"`
			Sweeps     int      `json:"sweeps"`
			Start      *float64 `json:"start"`
			End        *float64 `json:"end"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Channels, 2)

	sine := body.Channels[0]
	assert.Equal(t, "Sine", sine.Name)
	assert.Equal(t, "sync", sine.Discipline)
	assert.Equal(t, float64(memstore.DemoRate), sine.Rate)
	assert.Equal(t, 2, sine.Sweeps)
	require.NotNil(t, sine.Start)
	require.NotNil(t, sine.End)
	assert.Equal(t, 1.0, *sine.Start)
	assert.InDelta(t, 8.0, *sine.End, 1e-9)
}

type tableBody struct {
	Format  string `json:"format"`
	Index   []any  `json:"index"`
	Columns []struct {
		Name   string     `json:"name"`
		Values []*float64 `json:"values"`
	} `json:"columns"`
}

func TestTable(t *testing.T) {
	srv := newServer(t)

	w := get(t, srv, "/table?start=1.5&end=2")
	require.Equal(t, http.StatusOK, w.Code)

	var body tableBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "seconds", body.Format)
	require.Len(t, body.Index, 5001)
	assert.Equal(t, 1.5, body.Index[0])
	require.Len(t, body.Columns, 1)
	assert.Equal(t, "Sine", body.Columns[0].Name)

	w = get(t, srv, "/table?channel=Sine,Cosine&format=none&end=1")
	require.Equal(t, http.StatusOK, w.Code)

	body = tableBody{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "none", body.Format)
	require.Len(t, body.Index, 1)
	assert.Equal(t, float64(0), body.Index[0])
	require.Len(t, body.Columns, 2)
	assert.NotNil(t, body.Columns[1].Values[0])
}

func TestTableMissingCells(t *testing.T) {
	gin.SetMode(gin.TestMode)

	s := memstore.New(time.Date(2021, time.August, 5, 10, 21, 27, 0, time.UTC), 0)
	require.NoError(t, s.AddSync("A", "V", 2, memstore.SyncSweep{Start: 0, Values: []float64{1, 2, 3}}))
	require.NoError(t, s.AddSync("B", "V", 2, memstore.SyncSweep{Start: 1, Values: []float64{4}}))
	srv := api.NewRouter(api.NewTableAPI(rectable.NewReader(s), nil, nil, rectable.TimestampSeconds))

	w := get(t, srv, "/table?channel=A&channel=B")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"format": "seconds",
		"index": [0, 0.5, 1],
		"columns": [
			{"name": "A", "unit": "V", "values": [1, 2, 3]},
			{"name": "B", "unit": "V", "values": [null, null, 4]}
		]
	}`, w.Body.String())

	w = get(t, srv, "/table.csv?channel=A,B")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "time,A,B\n0,1,\n0.5,2,\n1,3,4\n", w.Body.String())
}

func TestTableErrors(t *testing.T) {
	srv := newServer(t)

	w := get(t, srv, "/table?channel=Sine&channel=Nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body struct {
		Channels []string `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Nope"}, body.Channels)

	for _, target := range []string{
		"/table?start=abc",
		"/table?start=3&end=2",
		"/table?format=julian",
		"/table?channel=Sine&channel=Sine",
		"/table.csv?end=x",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, srv, target).Code, target)
	}

	gin.SetMode(gin.TestMode)
	empty := api.NewRouter(api.NewTableAPI(rectable.NewReader(memstore.Demo()), nil, nil, rectable.TimestampSeconds))
	assert.Equal(t, http.StatusBadRequest, get(t, empty, "/table").Code)
}
