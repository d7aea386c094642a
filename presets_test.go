package xz

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/xzio/xz/randtxt"
)

func TestPreset(t *testing.T) {
	const srcLen = 64 * 1024
	var src bytes.Buffer
	io.CopyN(&src, randtxt.NewReader(rand.NewSource(13)), srcLen)

	for p := 0; p <= 9; p++ {
		t.Run(fmt.Sprintf("preset=%d", p), func(t *testing.T) {
			cfg := Preset(p)
			h1 := sha256.New()
			var buf bytes.Buffer
			w, err := NewWriterConfig(&buf, cfg)
			if err != nil {
				t.Errorf("NewWriterConfig error %s", err)
				return
			}
			n, err := io.Copy(io.MultiWriter(w, h1), bytes.NewReader(src.Bytes()))
			if err != nil {
				t.Errorf("io.Copy error %s", err)
				return
			}
			if err = w.Close(); err != nil {
				t.Errorf("w.Close() error %s", err)
				return
			}

			c := buf.Len()
			ratio := float64(c) / float64(n)
			t.Logf("compression ratio: %5.2f%%", ratio*100)

			r, err := NewReader(&buf)
			if err != nil {
				t.Errorf("NewReader error %s", err)
				return
			}
			h2 := sha256.New()
			if _, err = io.Copy(h2, r); err != nil {
				t.Errorf("io.Copy error %s", err)
				return
			}

			if !bytes.Equal(h1.Sum(nil), h2.Sum(nil)) {
				t.Errorf("checksums differ")
			}
		})
	}
}
