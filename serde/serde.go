// Package serde provides the serializers and deserializers streambind uses to
// move application values in and out of broker records and to place keys for
// partition-ownership lookups. Integer encodings are big-endian so partition
// placement agrees with Kafka's standard Integer/Long serializers.
package serde

import (
	"encoding/binary"
	"fmt"

	"github.com/streambind/streambind/internal/runtime/jsoncodec"
)

// Serializer encodes a value of type T into its wire form.
type Serializer[T any] func(T) ([]byte, error)

// Deserializer decodes a value of type T from its wire form.
type Deserializer[T any] func([]byte) (T, error)

// Serde pairs a serializer and deserializer for one type.
type Serde[T any] struct {
	Serialize   Serializer[T]
	Deserialize Deserializer[T]
}

// String round-trips UTF-8 strings unchanged.
var String = Serde[string]{
	Serialize:   func(s string) ([]byte, error) { return []byte(s), nil },
	Deserialize: func(b []byte) (string, error) { return string(b), nil },
}

// Bytes passes raw payloads through untouched.
var Bytes = Serde[[]byte]{
	Serialize:   func(b []byte) ([]byte, error) { return b, nil },
	Deserialize: func(b []byte) ([]byte, error) { return b, nil },
}

// Int32 encodes 32-bit integers as 4 big-endian bytes.
var Int32 = Serde[int32]{
	Serialize: func(v int32) ([]byte, error) {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v))
		return b, nil
	},
	Deserialize: func(b []byte) (int32, error) {
		if len(b) != 4 {
			return 0, fmt.Errorf("int32 payload must be 4 bytes, got %d", len(b))
		}
		return int32(binary.BigEndian.Uint32(b)), nil
	},
}

// Int64 encodes 64-bit integers as 8 big-endian bytes.
var Int64 = Serde[int64]{
	Serialize: func(v int64) ([]byte, error) {
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(v))
		return b, nil
	},
	Deserialize: func(b []byte) (int64, error) {
		if len(b) != 8 {
			return 0, fmt.Errorf("int64 payload must be 8 bytes, got %d", len(b))
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	},
}

// JSON builds a serde for any JSON-marshalable type.
func JSON[T any]() Serde[T] {
	return Serde[T]{
		Serialize: func(v T) ([]byte, error) {
			return jsoncodec.Marshal(v)
		},
		Deserialize: func(b []byte) (T, error) {
			var v T
			if err := jsoncodec.Unmarshal(b, &v); err != nil {
				return v, err
			}
			return v, nil
		},
	}
}
