// Package frame implements the browser native-messaging framing: a 4-byte
// little-endian length prefix followed by that many bytes of UTF-8 JSON.
//
// The same framing is used in both directions, so Reader and Writer are
// symmetric and can be pointed at each other in tests.
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxSize is the largest frame body accepted or produced (1 MiB).
const MaxSize = 1024 * 1024

const prefixLen = 4

// ErrTooLarge reports a frame whose announced length exceeds MaxSize.
// The reader has already discarded the body, so the stream stays aligned
// and the next Read starts at the following length prefix.
var ErrTooLarge = errors.New("frame too large")

// Reader reads length-prefixed frames.
type Reader struct {
	r io.Reader
}

// NewReader wraps r. Reads are not buffered beyond the current frame,
// so nothing belonging to the next frame is consumed early.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read blocks until one complete frame is available and returns its body.
//
// A clean end of stream before any prefix byte returns io.EOF. A stream that
// ends inside a prefix or a body returns io.ErrUnexpectedEOF.
func (fr *Reader) Read() ([]byte, error) {
	var prefix [prefixLen]byte
	if _, err := io.ReadFull(fr.r, prefix[:]); err != nil {
		// ReadFull returns io.EOF only when zero bytes were read.
		return nil, err
	}
	n := binary.LittleEndian.Uint32(prefix[:])

	if n > MaxSize {
		if _, err := io.CopyN(io.Discard, fr.r, int64(n)); err != nil {
			return nil, unexpected(err)
		}
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, n, MaxSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return nil, unexpected(err)
	}
	return body, nil
}

// Writer writes length-prefixed frames and flushes after every frame.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, prefixLen+4096)}
}

// Write emits prefix and body, then flushes so the peer never waits on a
// partially buffered frame.
func (fw *Writer) Write(body []byte) error {
	if len(body) > MaxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(body), MaxSize)
	}
	var prefix [prefixLen]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(body)))

	if _, err := fw.w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write frame prefix: %w", err)
	}
	if _, err := fw.w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	if err := fw.w.Flush(); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	return nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
