// Copyright 2014-2022 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xz_test

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/xzio/xz"
)

func ExampleReader() {
	const text = "The quick brown fox jumps over the lazy dog."

	var compressed bytes.Buffer
	w, err := xz.NewWriter(&compressed)
	if err != nil {
		log.Fatalf("xz.NewWriter error %s", err)
	}
	if _, err = io.WriteString(w, text); err != nil {
		log.Fatalf("WriteString error %s", err)
	}
	if err = w.Close(); err != nil {
		log.Fatalf("w.Close() error %s", err)
	}

	r, err := xz.NewReader(&compressed)
	if err != nil {
		log.Fatalf("xz.NewReader error %s", err)
	}
	if _, err = io.Copy(os.Stdout, r); err != nil {
		log.Fatalf("io.Copy error %s", err)
	}
	// Output:
	// The quick brown fox jumps over the lazy dog.
}

func ExampleWriter() {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		log.Fatalf("xz.NewWriter error %s", err)
	}
	_, err = fmt.Fprintln(w, "The brown fox jumps over the lazy dog.")
	if err != nil {
		log.Fatalf("fmt.Fprintln error %s", err)
	}
	if err = w.Close(); err != nil {
		log.Fatalf("w.Close() error %s", err)
	}
	// Output:
}
