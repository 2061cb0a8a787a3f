package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	bodies := [][]byte{
		[]byte(`{"action":"list-sessions"}`),
		[]byte(`{"ok":true,"sessions":["a","b"]}`),
		{},
		[]byte(`{"code":"héllo ✓"}`),
	}
	for _, b := range bodies {
		require.NoError(t, w.Write(b))
	}

	r := NewReader(&buf)
	for _, want := range bodies {
		got, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := r.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteUsesLittleEndianPrefix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).Write([]byte("abc")))

	raw := buf.Bytes()
	require.Len(t, raw, 7)
	assert.Equal(t, []byte{3, 0, 0, 0}, raw[:4])
	assert.Equal(t, "abc", string(raw[4:]))
}

func TestReadEmptyStreamIsEOF(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil)).Read()
	assert.True(t, errors.Is(err, io.EOF))
	assert.False(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestReadTruncatedPrefix(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{5, 0})).Read()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadTruncatedBody(t *testing.T) {
	raw := append([]byte{10, 0, 0, 0}, []byte("short")...)
	_, err := NewReader(bytes.NewReader(raw)).Read()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadOversizedFrameIsDrainedAndStreamStaysAligned(t *testing.T) {
	var raw bytes.Buffer
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], MaxSize+1)
	raw.Write(prefix[:])
	raw.Write(bytes.Repeat([]byte{'x'}, MaxSize+1))
	require.NoError(t, NewWriter(&raw).Write([]byte(`{"action":"list-sessions"}`)))

	r := NewReader(&raw)
	_, err := r.Read()
	require.ErrorIs(t, err, ErrTooLarge)

	next, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, `{"action":"list-sessions"}`, string(next))
}

func TestReadOversizedFrameTruncatedBody(t *testing.T) {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], MaxSize+10)
	raw := append(prefix[:], []byte("abc")...)

	_, err := NewReader(bytes.NewReader(raw)).Read()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteRejectsOversizedBody(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).Write(make([]byte, MaxSize+1))
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, buf.Len(), "nothing may reach the peer for a rejected frame")
}

func TestWriteAcceptsExactlyMaxSize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).Write(make([]byte, MaxSize)))

	got, err := NewReader(&buf).Read()
	require.NoError(t, err)
	assert.Len(t, got, MaxSize)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteSurfacesBrokenPipe(t *testing.T) {
	err := NewWriter(failingWriter{}).Write([]byte(`{"ok":true}`))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
