// Package wire implements the length-prefixed framing used on both the chat
// and the voice-control channels. Every frame is a 4-byte unsigned big-endian
// payload length followed by exactly that many payload bytes.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/juju/errors"
	"github.com/oxtoacart/bpool"
)

const headerSize = 4

// DefaultMaxFrameBytes bounds a single frame. Audio chunks are around 2 KiB,
// but file and image payloads travel base64-encoded inside a single frame.
const DefaultMaxFrameBytes = 16 << 20

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrEmptyFrame    = errors.New("empty frame")
)

var bufPool = bpool.NewBufferPool(64)

// WriteFrame writes the header and payload with a single Write call so that
// two frames written by different goroutines through a locked writer can
// never interleave mid-frame.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := bufPool.Get()
	defer bufPool.Put(buf)

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	buf.Write(header[:])
	buf.Write(payload)

	_, err := w.Write(buf.Bytes())

	return errors.Annotate(err, "write frame")
}

// ReadFrame reads one frame, rejecting payloads larger than max. On
// ErrFrameTooLarge the oversized payload is discarded first, so the stream
// stays aligned and the caller may keep reading.
func ReadFrame(r io.Reader, max uint32) ([]byte, error) {
	var header [headerSize]byte

	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Annotate(err, "read frame header")
	}

	size := binary.BigEndian.Uint32(header[:])

	if size == 0 {
		return nil, errors.Trace(ErrEmptyFrame)
	}

	if size > max {
		if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
			return nil, errors.Annotate(err, "discard oversized frame")
		}

		return nil, errors.Annotatef(ErrFrameTooLarge, "size: %d", size)
	}

	payload := make([]byte, size)

	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Annotate(err, "read frame payload")
	}

	return payload, nil
}
