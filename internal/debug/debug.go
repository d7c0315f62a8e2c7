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

// Package debug provides a logging hook for the codec hot loops that
// compiles to nothing unless the "turbopb_debug" build tag is set.
package debug

// Enabled is true when the "turbopb_debug" build tag is set. Checking this
// before building a log message lets the compiler dead-code-eliminate the
// whole call site in release builds.
const Enabled = enabled

// Log records a single step of the decode/encode loop. Call sites always
// guard this with `if debug.Enabled`.
func Log(format string, args ...any) {
	log(format, args...)
}
