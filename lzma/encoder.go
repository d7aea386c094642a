package lzma

import "io"

// encoderWindow is the part of the dictionary window functionality the
// encoder requires: writing new data and reading back bytes that have
// already been written.
type encoderWindow interface {
	io.Writer
	ReadAt(p []byte, off int64) (int, error)
}

// encoder converts literals and matches into an LZMA bitstream using a
// range encoder.
type encoder struct {
	window encoderWindow
	pos    int64
	re     rangeEncoder
	state  state
}

// init (re)initializes the encoder to write range-encoded bits to w,
// looking back at already written data in window, using props.
func (e *encoder) init(w io.Writer, window encoderWindow, props Properties) error {
	*e = encoder{window: window}
	if err := e.re.init(w); err != nil {
		return err
	}
	e.state.init(props)
	return nil
}

// byteAt returns the byte dist positions before the current encoder
// position. It returns 0 if that position lies before the start of the
// window, mirroring the zero-filled history assumed by the decoder.
func (e *encoder) byteAt(dist int64) byte {
	if dist > e.pos {
		return 0
	}
	var a [1]byte
	if _, err := e.window.ReadAt(a[:], e.pos-dist); err != nil {
		return 0
	}
	return a[0]
}

// writeLiteral encodes a single literal byte.
func (e *encoder) writeLiteral(c byte) error {
	st, st2, _ := e.state.states(e.pos)
	if err := e.state.s2[st2].isMatch.Encode(&e.re, 0); err != nil {
		return err
	}
	match := e.byteAt(int64(e.state.rep[0]) + 1)
	prev := e.byteAt(1)
	litState := e.state.litState(prev, e.pos)
	if err := e.state.litCodec.Encode(&e.re, c, st, match, litState); err != nil {
		return err
	}
	e.state.updateStateLiteral()
	e.pos++
	return nil
}

// writeMatch encodes a match of the given length at the given distance
// offset. dist is the distance minus one; lz.Seq.Offset holds the
// distance itself.
func (e *encoder) writeMatch(dist, length uint32) error {
	st, st2, posState := e.state.states(e.pos)
	if err := e.state.s2[st2].isMatch.Encode(&e.re, 1); err != nil {
		return err
	}

	g := 0
	for ; g < 4; g++ {
		if e.state.rep[g] == dist {
			break
		}
	}
	isRep := iverson(g < 4)
	if err := e.state.s1[st].isRep.Encode(&e.re, isRep); err != nil {
		return err
	}

	n := length - minMatchLen
	if isRep == 0 {
		e.state.rep[3], e.state.rep[2], e.state.rep[1], e.state.rep[0] =
			e.state.rep[2], e.state.rep[1], e.state.rep[0], dist
		e.state.updateStateMatch()
		if err := e.state.lenCodec.Encode(n, &e.re, posState); err != nil {
			return err
		}
		if err := e.state.distCodec.Encode(dist, n, &e.re); err != nil {
			return err
		}
		e.pos += int64(length)
		return nil
	}

	notG0 := iverson(g != 0)
	if err := e.state.s1[st].isRepG0.Encode(&e.re, notG0); err != nil {
		return err
	}
	if notG0 == 0 {
		longRep := iverson(length != 1)
		if err := e.state.s2[st2].isRepG0Long.Encode(&e.re, longRep); err != nil {
			return err
		}
		if longRep == 0 {
			e.state.updateStateShortRep()
			e.pos += int64(length)
			return nil
		}
	} else {
		notG1 := iverson(g != 1)
		if err := e.state.s1[st].isRepG1.Encode(&e.re, notG1); err != nil {
			return err
		}
		if notG1 == 0 {
			dist = e.state.rep[1]
		} else {
			notG2 := iverson(g != 2)
			if err := e.state.s1[st].isRepG2.Encode(&e.re, notG2); err != nil {
				return err
			}
			if notG2 == 1 {
				e.state.rep[3] = e.state.rep[2]
			} else {
				dist = e.state.rep[2]
			}
			e.state.rep[2] = e.state.rep[1]
		}
		e.state.rep[1] = e.state.rep[0]
		e.state.rep[0] = dist
	}

	e.state.updateStateRep()
	if err := e.state.repLenCodec.Encode(n, &e.re, posState); err != nil {
		return err
	}
	e.pos += int64(length)
	return nil
}

// Close flushes the range encoder, writing out the final bytes of the low
// value.
func (e *encoder) Close() error {
	return e.re.Close()
}
