package transport

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// ErrUnsupportedPayload is returned by Encode for values it cannot turn into bytes.
var ErrUnsupportedPayload = errors.New("unsupported payload type")

// Encode converts an outbound payload into a Message without altering its bytes.
//
// Supported values, in order of precedence:
//   - Message: sent as is
//   - []byte: binary frame
//   - string: text frame
//   - encoding.BinaryMarshaler: binary frame
//   - encoding.TextMarshaler, fmt.Stringer: text frame
//   - io.Reader: binary frame with everything read
//   - numbers and booleans: text frame with their decimal form ("42", "3.5", "true")
//   - arrays and slices of fixed-size values (bool, int8..int64,
//     uint8..uint64, float32, float64): little-endian binary frame
func Encode(payload any) (Message, error) {
	switch v := payload.(type) {
	case nil:
		return Message{}, fmt.Errorf("%w: nil", ErrUnsupportedPayload)
	case Message:
		return v, nil
	case *Message:
		if v == nil {
			return Message{}, fmt.Errorf("%w: nil message", ErrUnsupportedPayload)
		}
		return *v, nil
	case []byte:
		return Message{Type: Binary, Data: v}, nil
	case string:
		return Message{Type: Text, Data: []byte(v)}, nil
	case encoding.BinaryMarshaler:
		b, err := v.MarshalBinary()
		if err != nil {
			return Message{}, fmt.Errorf("marshal binary: %w", err)
		}
		return Message{Type: Binary, Data: b}, nil
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			return Message{}, fmt.Errorf("marshal text: %w", err)
		}
		return Message{Type: Text, Data: b}, nil
	case fmt.Stringer:
		return Message{Type: Text, Data: []byte(v.String())}, nil
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return Message{}, fmt.Errorf("read payload: %w", err)
		}
		return Message{Type: Binary, Data: b}, nil
	}

	if b, ok := appendScalar(nil, reflect.ValueOf(payload)); ok {
		return Message{Type: Text, Data: b}, nil
	}

	if k := reflect.TypeOf(payload).Kind(); (k != reflect.Slice && k != reflect.Array) || binary.Size(payload) < 0 {
		return Message{}, fmt.Errorf("%w: %T", ErrUnsupportedPayload, payload)
	}
	b, err := binary.Append(nil, binary.LittleEndian, payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %T: %w", payload, err)
	}
	return Message{Type: Binary, Data: b}, nil
}

// appendScalar appends the text form of a number or boolean. Named types are
// matched by their underlying kind.
func appendScalar(dst []byte, v reflect.Value) ([]byte, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(dst, v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.AppendUint(dst, v.Uint(), 10), true
	case reflect.Float32:
		return strconv.AppendFloat(dst, v.Float(), 'g', -1, 32), true
	case reflect.Float64:
		return strconv.AppendFloat(dst, v.Float(), 'g', -1, 64), true
	case reflect.Bool:
		return strconv.AppendBool(dst, v.Bool()), true
	default:
		return dst, false
	}
}
