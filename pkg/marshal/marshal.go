// Package marshal provides the wire codecs used by the Syncano transports.
//
// JSON is the default for both REST and the sync server. CBOR is accepted by
// sync servers that speak the binary framing and is selected with the
// `cbor` codec name.
package marshal

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	json "github.com/goccy/go-json"

	"github.com/syncano/syncano.go/internal/codec"
	"github.com/syncano/syncano.go/pkg/constants"
)

const (
	JSONName = "json"
	CBORName = "cbor"
)

// JSONCodec encodes frames and REST bodies as JSON.
type JSONCodec struct{}

var _ codec.Codec = JSONCodec{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}

func (JSONCodec) NewEncoder(w io.Writer) codec.Encoder {
	return json.NewEncoder(w)
}

func (JSONCodec) NewDecoder(r io.Reader) codec.Decoder {
	return json.NewDecoder(r)
}

func (JSONCodec) Name() string { return JSONName }

func (JSONCodec) Binary() bool { return false }

// CBORCodec encodes frames as CBOR. Struct fields fall back to their json tags,
// so the same DTOs serve both codecs.
type CBORCodec struct {
	em cbor.EncMode
	dm cbor.DecMode
}

var _ codec.Codec = (*CBORCodec)(nil)

func NewCBOR() *CBORCodec {
	em, err := cbor.EncOptions{
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}

	return &CBORCodec{em: em, dm: dm}
}

func (c *CBORCodec) Marshal(v any) ([]byte, error) {
	return c.em.Marshal(v)
}

func (c *CBORCodec) Unmarshal(data []byte, dst any) error {
	return c.dm.Unmarshal(data, dst)
}

func (c *CBORCodec) NewEncoder(w io.Writer) codec.Encoder {
	return c.em.NewEncoder(w)
}

func (c *CBORCodec) NewDecoder(r io.Reader) codec.Decoder {
	return c.dm.NewDecoder(r)
}

func (c *CBORCodec) Name() string { return CBORName }

func (c *CBORCodec) Binary() bool { return true }

// ByName returns the codec registered under name. An empty name selects JSON.
func ByName(name string) (codec.Codec, error) {
	switch name {
	case "", JSONName:
		return JSONCodec{}, nil
	case CBORName:
		return NewCBOR(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// Convert re-encodes a generically decoded value (maps, slices, scalars)
// into dst using c. It is how payloads received as `any` become DTOs.
func Convert(c codec.Codec, src, dst any) error {
	if dst == nil {
		return nil
	}
	if src == nil {
		return fmt.Errorf("nothing to decode into %T: %w", dst, constants.InvalidResponse)
	}

	data, err := c.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to re-encode payload: %w", err)
	}

	if err := c.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode payload into %T: %w", dst, err)
	}
	return nil
}

// ToParams turns a request DTO into the flat parameter object sent on the
// wire, dropping fields tagged `json:"-"` and empty `omitempty` fields.
func ToParams(c codec.Codec, req any) (map[string]any, error) {
	params := map[string]any{}
	if req == nil {
		return params, nil
	}

	data, err := c.Marshal(req)
	if err != nil {
		return nil, err
	}

	if err := c.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	return params, nil
}
