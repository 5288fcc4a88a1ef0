// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rewrite

import (
	"github.com/walteh/copyedit/pkg/glob"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrInvalidRequest is returned when old and new text are missing or equal
	ErrInvalidRequest = errors.Base("oldText and newText are required and must differ")

	// ErrConfiguration is returned when there are no usable patterns or the
	// project root cannot be read
	ErrConfiguration = glob.ErrConfiguration

	// ErrNotFound is returned when no spelling of the old text exists in any
	// scanned file
	ErrNotFound = errors.Base("text not found in source files")

	// ErrWriteIO is returned when the winning file cannot be read or written
	ErrWriteIO = errors.Base("writing source file")

	// ErrStaleSource is returned when the winning span changed between the
	// scan and the write
	ErrStaleSource = errors.Base("source changed since it was scanned")
)

// 📦 Outcome is the result of one rewrite attempt. It is a value and is not
// changed after it is produced.
type Outcome struct {
	Success    bool   `json:"success"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	MatchCount int    `json:"matchCount,omitempty"`
	Error      string `json:"error,omitempty"`

	err error
}

// Err returns the typed failure cause, nil on success. Outcomes decoded from
// JSON carry no cause.
func (o Outcome) Err() error {
	if o.Success {
		return nil
	}
	if o.err != nil {
		return o.err
	}
	if o.Error != "" {
		return errors.New(o.Error)
	}
	return nil
}

// Failed builds an unsuccessful outcome from err
func Failed(err error) Outcome {
	return Outcome{
		Success: false,
		Error:   err.Error(),
		err:     err,
	}
}

// Succeeded builds a successful outcome
func Succeeded(file string, line, matchCount int) Outcome {
	return Outcome{
		Success:    true,
		File:       file,
		Line:       line,
		MatchCount: matchCount,
	}
}
