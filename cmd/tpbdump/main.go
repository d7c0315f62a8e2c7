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

// tpbdump disassembles protobuf wire-format bytes into Protoscope text, and
// assembles Protoscope text back into bytes, for manual inspection of
// turbopb's output and as a fixture generator for tests.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/protocolbuffers/protoscope"
	"golang.org/x/term"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/turbopb/turbopb"
)

var (
	schemaPath = flag.String("schema", "", "path to a compiled FileDescriptorSet (as produced by protoc -o or buf build -o)")
	typeName   = flag.String("type", "", "fully-qualified message name within -schema; required to validate and annotate fields")
	input      = flag.String("i", "-", "input file; defaults to stdin")
	output     = flag.String("o", "-", "output file; defaults to stdout")
	assemble   = flag.Bool("asm", false, "assemble Protoscope text from -i into wire-format bytes, instead of disassembling")

	printNames   = flag.Bool("print-field-names", true, "annotate fields with names resolved from -schema/-type")
	explicitType = flag.Bool("explicit-wire-types", false, "print an explicit wire type on every field")
	noGroups     = flag.Bool("no-groups", false, "never interpret length-delimited fields as groups")
)

func open(path string, write bool) (*os.File, func(), error) {
	if path == "-" {
		if write {
			return os.Stdout, func() {}, nil
		}
		return os.Stdin, func() {}, nil
	}
	if write {
		f, err := os.Create(path)
		return f, func() { _ = f.Close() }, err
	}
	f, err := os.Open(path)
	return f, func() { _ = f.Close() }, err
}

// loadType compiles the message named by -type out of -schema, if both are
// set. An absent -schema means "decode without a schema": tpbdump falls
// back to a schema-less Protoscope rendering. -schema without -type is an
// error.
func loadType() (*turbopb.MessageType, error) {
	if *schemaPath == "" {
		return nil, nil
	}
	if *typeName == "" {
		return nil, fmt.Errorf("-type is required alongside -schema")
	}

	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	ty, err := turbopb.CompileFromBytes(schema, protoreflect.FullName(*typeName))
	if err != nil {
		return nil, fmt.Errorf("compiling %s from %s: %w", *typeName, *schemaPath, err)
	}
	return ty, nil
}

// verify decodes data against ty, if a schema was given, as a sanity check
// before dumping or after assembling. A schema lets tpbdump catch malformed
// output before it is written anywhere.
func verify(ty *turbopb.MessageType, data []byte) error {
	if ty == nil {
		return nil
	}
	a := turbopb.NewArena()
	_, err := turbopb.DecodeFlat(a, ty, data)
	return err
}

// rule returns a comment-style separator sized to the output terminal's
// width, falling back to a fixed width when output isn't a terminal (e.g.
// when redirected to a file).
func rule(f *os.File) string {
	width := 72
	if term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = min(w, 120)
		}
	}
	return "// " + strings.Repeat("-", width-3)
}

func run() error {
	flag.Parse()

	ty, err := loadType()
	if err != nil {
		return err
	}

	in, closeIn, err := open(*input, false)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer closeIn()

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	out, closeOut, err := open(*output, true)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer closeOut()

	if *assemble {
		data, err := protoscope.NewScanner(string(raw)).Exec()
		if err != nil {
			return fmt.Errorf("assembling protoscope: %w", err)
		}
		if err := verify(ty, data); err != nil {
			return fmt.Errorf("assembled bytes do not decode as %s: %w", *typeName, err)
		}
		_, err = out.Write(data)
		return err
	}

	if err := verify(ty, raw); err != nil {
		return fmt.Errorf("input does not decode as %s: %w", *typeName, err)
	}

	w := &protoscope.Writer{
		PrintFieldNames:        *printNames && ty != nil,
		ExplicitWireTypes:      *explicitType,
		NoGroups:               *noGroups,
		ExplicitLengthPrefixes: false,
	}

	if *typeName != "" {
		fmt.Fprintf(out, "// %s\n", *typeName)
	}
	fmt.Fprintln(out, rule(out))
	fmt.Fprintln(out, w.Write(raw))
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
