// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package rectable

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a requested channel does not exist.
	ErrNotFound = errors.New("channel not found")
	// ErrConfiguration is returned for invalid caller supplied parameters.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrShortRead is returned when a store returns fewer samples than requested.
	ErrShortRead = errors.New("short sample read")
)

// NotFoundError lists every unknown channel of a request.
type NotFoundError struct {
	Names []string
}

func (e *NotFoundError) Error() string {
	return "channel not found: " + strings.Join(e.Names, ", ")
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
