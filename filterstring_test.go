package xz

import "testing"

func TestParseFilterChainLZMA2Only(t *testing.T) {
	chain, err := ParseFilterChain("lzma2")
	if err != nil {
		t.Fatalf("ParseFilterChain error %s", err)
	}
	if len(chain) != 1 {
		t.Fatalf("chain length %d; want 1", len(chain))
	}
	lf, ok := chain[0].(*lzmaFilter)
	if !ok {
		t.Fatalf("chain[0] has type %T; want *lzmaFilter", chain[0])
	}
	if lf.dictSize != lzma2PresetDictSize[6] {
		t.Fatalf("dictSize %d; want default preset size %d",
			lf.dictSize, lzma2PresetDictSize[6])
	}
}

func TestParseFilterChainDeltaPlusLZMA2(t *testing.T) {
	chain, err := ParseFilterChain("delta=dist:4+lzma2=dict:1MiB")
	if err != nil {
		t.Fatalf("ParseFilterChain error %s", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length %d; want 2", len(chain))
	}
	df, ok := chain[0].(*deltaFilter)
	if !ok {
		t.Fatalf("chain[0] has type %T; want *deltaFilter", chain[0])
	}
	if df.distance != 4 {
		t.Fatalf("distance %d; want 4", df.distance)
	}
	lf, ok := chain[1].(*lzmaFilter)
	if !ok {
		t.Fatalf("chain[1] has type %T; want *lzmaFilter", chain[1])
	}
	if lf.dictSize != 1<<20 {
		t.Fatalf("dictSize %d; want %d", lf.dictSize, 1<<20)
	}
}

func TestParseFilterChainX86StartOffset(t *testing.T) {
	chain, err := ParseFilterChain("x86=start:16+lzma2")
	if err != nil {
		t.Fatalf("ParseFilterChain error %s", err)
	}
	bf, ok := chain[0].(*bcjFilter)
	if !ok {
		t.Fatalf("chain[0] has type %T; want *bcjFilter", chain[0])
	}
	if bf.kind != idBCJX86 {
		t.Fatalf("kind %#x; want %#x", bf.kind, idBCJX86)
	}
	if bf.startOffset != 16 {
		t.Fatalf("startOffset %d; want 16", bf.startOffset)
	}
}

func TestParseFilterChainRejectsNonLastLZMA2(t *testing.T) {
	if _, err := ParseFilterChain("lzma2+delta"); err == nil {
		t.Fatalf("ParseFilterChain accepted lzma2 before another filter")
	}
}

func TestParseFilterChainRejectsUnknownName(t *testing.T) {
	if _, err := ParseFilterChain("bogus+lzma2"); err == nil {
		t.Fatalf("ParseFilterChain accepted unknown filter name")
	}
}

func TestParseFilterChainPresetDigit(t *testing.T) {
	chain, err := ParseFilterChain("lzma2=9")
	if err != nil {
		t.Fatalf("ParseFilterChain error %s", err)
	}
	lf := chain[0].(*lzmaFilter)
	if lf.dictSize != lzma2PresetDictSize[9] {
		t.Fatalf("dictSize %d; want preset 9 size %d",
			lf.dictSize, lzma2PresetDictSize[9])
	}
}

func TestFilterChainStringRoundTrip(t *testing.T) {
	orig := "delta=dist:4+x86=start:16+lzma2=dict:1MiB"
	chain, err := ParseFilterChain(orig)
	if err != nil {
		t.Fatalf("ParseFilterChain error %s", err)
	}
	s, err := FilterChainString(chain)
	if err != nil {
		t.Fatalf("FilterChainString error %s", err)
	}
	chain2, err := ParseFilterChain(s)
	if err != nil {
		t.Fatalf("ParseFilterChain(%q) error %s", s, err)
	}
	s2, err := FilterChainString(chain2)
	if err != nil {
		t.Fatalf("FilterChainString error %s", err)
	}
	if s != s2 {
		t.Fatalf("round trip produced %q; then %q", s, s2)
	}
}

func TestParseSizeValueSuffixes(t *testing.T) {
	cases := map[string]int64{
		"1024":  1024,
		"1k":    1 << 10,
		"1Ki":   1 << 10,
		"1KiB":  1 << 10,
		"4M":    4 << 20,
		"4MiB":  4 << 20,
		"2G":    2 << 30,
		"2GiB":  2 << 30,
	}
	for in, want := range cases {
		got, err := parseSizeValue(in)
		if err != nil {
			t.Fatalf("parseSizeValue(%q) error %s", in, err)
		}
		if got != want {
			t.Fatalf("parseSizeValue(%q) = %d; want %d", in, got, want)
		}
	}
}

func TestParseSizeValueRejectsBadSuffix(t *testing.T) {
	if _, err := parseSizeValue("5Q"); err == nil {
		t.Fatalf("parseSizeValue accepted unrecognized suffix")
	}
}
