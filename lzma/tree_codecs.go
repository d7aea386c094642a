package lzma

// probTree stores enough probability values to be used by the treeCodec and
// treeReverseCodec types.
type probTree struct {
	probs []prob
	bits  byte
}

// makeProbTree initializes a probTree structure. It panics if bits is
// outside the range [1,32].
func makeProbTree(bits int) probTree {
	if !(1 <= bits && bits <= 32) {
		panic("bits outside of range [1,32]")
	}
	t := probTree{
		bits:  byte(bits),
		probs: make([]prob, 1<<uint(bits)),
	}
	for i := range t.probs {
		t.probs[i] = probInit
	}
	return t
}

// Bits provides the number of bits for the values to de- or encode.
func (t *probTree) Bits() int {
	return int(t.bits)
}
