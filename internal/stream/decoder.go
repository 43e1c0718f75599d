package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const readChunkSize = 4 * 1024

// ErrDecoderClosed is returned by Write after Close
var ErrDecoderClosed = errors.New("stream decoder is closed")

// DeltaFunc receives each increment of reply text as it is decoded
type DeltaFunc func(delta string)

// Decoder assembles reply text from a chat webhook body that may be NDJSON
// items, plain text lines or a single JSON document. Lines are only
// interpreted once complete, so the result does not depend on how the body
// was chunked.
type Decoder struct {
	onDelta DeltaFunc
	pending []byte
	raw     bytes.Buffer
	text    strings.Builder
	closed  bool
}

// NewDecoder creates a decoder; onDelta may be nil
func NewDecoder(onDelta DeltaFunc) *Decoder {
	return &Decoder{onDelta: onDelta}
}

// Write feeds the next chunk of the body. It never fails on malformed input.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.closed {
		return 0, ErrDecoderClosed
	}

	d.raw.Write(p)
	d.pending = append(d.pending, p...)

	for {
		idx := bytes.IndexByte(d.pending, '\n')
		if idx < 0 {
			break
		}
		d.handleLine(d.pending[:idx])
		d.pending = d.pending[idx+1:]
	}

	if len(d.pending) == 0 {
		d.pending = nil
	}

	return len(p), nil
}

// Close flushes the trailing fragment left after the last newline
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if len(d.pending) > 0 {
		d.handleLine(d.pending)
		d.pending = nil
	}
	return nil
}

// Streamed returns only the text accumulated from streamed lines
func (d *Decoder) Streamed() string {
	return d.text.String()
}

// Text returns the final reply text: the streamed text, else the body read
// as a single JSON document, else the raw body. It is empty only when the
// body carried nothing at all.
func (d *Decoder) Text() string {
	if d.text.Len() > 0 {
		return d.text.String()
	}
	return ClassifyBody(decodeText(d.raw.Bytes())).Text
}

func (d *Decoder) handleLine(line []byte) {
	shape := ClassifyLine(decodeText(line))

	var delta string
	switch shape.Kind {
	case ShapeItem:
		delta = shape.Text
	case ShapePlainText:
		delta = shape.Text
		if d.text.Len() > 0 {
			delta = "\n" + delta
		}
	default:
		return
	}
	if delta == "" {
		return
	}

	d.text.WriteString(delta)
	if d.onDelta != nil {
		d.onDelta(delta)
	}
}

// Decode reads r to the end, reporting increments through onDelta. The
// returned text is what Decoder.Text yields; a read error is returned along
// with whatever text was assembled before it.
func Decode(r io.Reader, onDelta DeltaFunc) (string, error) {
	d := NewDecoder(onDelta)
	buf := make([]byte, readChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			d.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			d.Close()
			return d.Streamed(), fmt.Errorf("failed to read reply stream: %w", err)
		}
	}

	d.Close()
	return d.Text(), nil
}

func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
