package lzma

// chunkHeader mirrors ChunkHeader but is used internally by chunkWriter when
// assembling the header for an outgoing chunk.
type chunkHeader struct {
	control        byte
	size           int
	compressedSize int
	properties     Properties
}

// Chunk control byte values, mirroring the exported C-prefixed constants
// used by chunkReader.
const (
	cEOS  = CEOS
	cUD   = CUD
	cU    = CU
	cC    = CC
	cCS   = CCS
	cCSP  = CCSP
	cCSPD = CCSPD
)

// append appends the binary representation of the chunk header to p.
func (h chunkHeader) append(p []byte) ([]byte, error) {
	ch := ChunkHeader{
		Control:        h.control,
		Size:           h.size,
		CompressedSize: h.compressedSize,
		Properties:     h.properties,
	}
	return ch.append(p)
}
