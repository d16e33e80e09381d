package emit

import (
	"bytes"
	"encoding/binary"
	"math"
)

// coder accumulates function body bytecode.
type coder struct {
	buf bytes.Buffer
}

func (c *coder) bytes() []byte { return c.buf.Bytes() }

func (c *coder) op(b byte) { c.buf.WriteByte(b) }

func (c *coder) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		c.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

func (c *coder) s32(v int32) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && (b&0x40) == 0) || (v == -1 && (b&0x40) != 0) {
			more = false
		} else {
			b |= 0x80
		}
		c.buf.WriteByte(b)
	}
}

func (c *coder) f32(v float32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	c.buf.Write(buf[:])
}
