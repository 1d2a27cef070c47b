/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package idgen issues short correlation ids for gestures, saves and crash
// reports, backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	GesturePrefix = "gst-"
	SavePrefix    = "sav-"
	CrashPrefix   = "crash-"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters after the prefix.
const Length = 8

// New returns prefix followed by Length random characters.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// MustNew is New for callers that only use the id for log correlation; on
// failure it returns the bare prefix.
func MustNew(prefix string) string {
	id, err := New(prefix)
	if err != nil {
		return prefix
	}
	return id
}
