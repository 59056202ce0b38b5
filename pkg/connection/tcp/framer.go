package tcp

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// MaxFrameSize bounds a single incoming frame.
const MaxFrameSize = 16 << 20

var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Framer splits a byte stream into frames.
type Framer interface {
	ReadFrame(r *bufio.Reader) ([]byte, error)
	WriteFrame(w io.Writer, data []byte) error
}

// LineFramer terminates every frame with '\n'. It is used with text codecs,
// whose encodings never contain a raw newline.
type LineFramer struct{}

func (LineFramer) ReadFrame(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
		if len(buf) > MaxFrameSize {
			return nil, ErrFrameTooLarge
		}
		if !isPrefix {
			break
		}
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		// Blank keepalive lines are not frames.
		return LineFramer{}.ReadFrame(r)
	}
	return buf, nil
}

func (LineFramer) WriteFrame(w io.Writer, data []byte) error {
	if bytes.IndexByte(data, '\n') >= 0 {
		return fmt.Errorf("frame contains a newline")
	}
	_, err := w.Write(append(data, '\n'))
	return err
}

// LengthPrefixFramer precedes every frame with its size as a 4 byte
// big-endian integer. It is used with binary codecs.
type LengthPrefixFramer struct{}

func (LengthPrefixFramer) ReadFrame(r *bufio.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (LengthPrefixFramer) WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	_, err := w.Write(buf)
	return err
}

// FramerFor returns the framer matching a codec.
func FramerFor(binaryCodec bool) Framer {
	if binaryCodec {
		return LengthPrefixFramer{}
	}
	return LineFramer{}
}

// frameConn adapts a net.Conn to connection.FrameConn.
type frameConn struct {
	conn   net.Conn
	reader *bufio.Reader
	framer Framer

	closeOnce sync.Once
	closeErr  error
}

func newFrameConn(conn net.Conn, framer Framer) *frameConn {
	return &frameConn{
		conn:   conn,
		reader: bufio.NewReader(conn),
		framer: framer,
	}
}

func (c *frameConn) ReadFrame() ([]byte, error) {
	return c.framer.ReadFrame(c.reader)
}

func (c *frameConn) WriteFrame(data []byte) error {
	return c.framer.WriteFrame(c.conn, data)
}

func (c *frameConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
