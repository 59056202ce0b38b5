package codec

import "io"

type Encoder interface {
	Encode(v any) error
}

type Decoder interface {
	Decode(v any) error
}

type Marshaler interface {
	Marshal(v any) ([]byte, error)
	NewEncoder(w io.Writer) Encoder
}

type Unmarshaler interface {
	Unmarshal(data []byte, dst any) error
	NewDecoder(r io.Reader) Decoder
}

// Codec is a Marshaler and Unmarshaler pair for one wire format.
//
// Name is used as the WebSocket subprotocol. Binary codecs get
// length-prefixed frames on raw sockets, text codecs get one frame per line.
type Codec interface {
	Marshaler
	Unmarshaler
	Name() string
	Binary() bool
}
