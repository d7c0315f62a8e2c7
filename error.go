// Copyright 2026 The Turbopb Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package turbopb

import (
	"errors"
	"fmt"

	"github.com/turbopb/turbopb/internal/codec"
)

var faultMessages = [...]error{
	codec.FaultNone:            nil,
	codec.FaultMalformed:       errors.New("malformed wire data"),
	codec.FaultStackOverflow:   errors.New("message nesting exceeds the configured depth limit"),
	codec.FaultBufferTooSmall:  errors.New("buffer too small to hold the encoded message"),
	codec.FaultAllocationFailed: errors.New("arena allocation failed"),
}

// ErrMalformed, ErrStackOverflow, ErrBufferTooSmall, and ErrAllocationFailed
// are the sentinels every error returned by a decode or encode operation in
// this package unwraps to; compare against them with [errors.Is].
var (
	ErrMalformed        = faultMessages[codec.FaultMalformed]
	ErrStackOverflow    = faultMessages[codec.FaultStackOverflow]
	ErrBufferTooSmall   = faultMessages[codec.FaultBufferTooSmall]
	ErrAllocationFailed = faultMessages[codec.FaultAllocationFailed]
)

// codecError wraps the codec's allocation-free Fault sentinel into an
// [error], the boundary where this package's public API starts paying
// allocation cost for diagnostics (mirrors the teacher's errParse, minus the
// byte offset: the resumable decoder/encoder do not track one across
// Resume calls, since doing so would require every chunk to know its
// absolute stream position).
type codecError struct {
	op    string
	fault codec.Fault
}

func (e *codecError) Error() string {
	return fmt.Sprintf("turbopb: %s: %v", e.op, e.Unwrap())
}

func (e *codecError) Unwrap() error {
	return faultMessages[e.fault]
}

func wrapFault(op string, f codec.Fault) error {
	if f == codec.FaultNone {
		return nil
	}
	return &codecError{op: op, fault: f}
}
