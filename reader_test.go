// Copyright 2014-2016 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xz

import (
	"bytes"
	"io"
	"testing"
)

func TestReaderSimple(t *testing.T) {
	const text = "The quick brown fox jumps over the lazy dog."

	var compressed bytes.Buffer
	w, err := NewWriter(&compressed)
	if err != nil {
		t.Fatalf("NewWriter error %s", err)
	}
	if _, err = io.WriteString(w, text); err != nil {
		t.Fatalf("WriteString error %s", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}

	r, err := NewReader(&compressed)
	if err != nil {
		t.Fatalf("NewReader error %s", err)
	}
	var buf bytes.Buffer
	if _, err = io.Copy(&buf, r); err != nil {
		t.Fatalf("io.Copy error %s", err)
	}
	if buf.String() != text {
		t.Fatalf("decoded %q; want %q", buf.String(), text)
	}
}
