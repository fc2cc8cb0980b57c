// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package api serves recording tables over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/OpenPSG/rectable"
	"github.com/gin-gonic/gin"
)

// NewRouter returns a gin engine serving the table API.
func NewRouter(api TableAPI) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, err any) {
			api.log.ErrorContext(c.Request.Context(), "panic", "err", err, "stack", string(debug.Stack()))
			c.AbortWithStatus(http.StatusInternalServerError)
		}),
		requestLogger(api.log),
	)

	RegisterTable(r, api)
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// statusCode maps reader errors onto HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, rectable.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rectable.ErrConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, log *slog.Logger, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		log.ErrorContext(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "err", err)
	}

	body := gin.H{"error": err.Error()}
	var nf *rectable.NotFoundError
	if errors.As(err, &nf) {
		body["channels"] = nf.Names
	}
	c.AbortWithStatusJSON(code, body)
}
