package index

import (
	"math"

	"github.com/leftmike/tuplestore/sql"
)

// Key tags mirror the teacher's storage/encode order-preserving encoding
// (storage/encode/key.go): a type tag byte followed by a big-endian,
// sign-flipped representation so that byte-comparison equals value
// comparison. This core doesn't own real tuple byte layout, but an index
// still needs a comparable, orderable key, so the same scheme is used here
// to build both hash and ordered index keys.
const (
	nullKeyTag    = 0
	falseKeyTag   = 1
	trueKeyTag    = 2
	int64NegTag   = 3
	int64NotNeg   = 4
	float64NegTag = 5
	float64PosTag = 6
	stringKeyTag  = 7
	bytesKeyTag   = 8
)

// EncodeKey builds an order-preserving byte key from the given columns of a
// row, in the order given.
func EncodeKey(columns []int, row []sql.Value) []byte {
	var buf []byte
	for _, col := range columns {
		buf = encodeValue(buf, row[col])
	}
	return buf
}

func encodeValue(buf []byte, v sql.Value) []byte {
	switch v := v.(type) {
	case nil:
		return append(buf, nullKeyTag)
	case sql.BoolValue:
		if v {
			return append(buf, trueKeyTag)
		}
		return append(buf, falseKeyTag)
	case sql.Int64Value:
		if v < 0 {
			buf = append(buf, int64NegTag)
		} else {
			buf = append(buf, int64NotNeg)
		}
		return appendUint64(buf, uint64(v)^(1<<63))
	case sql.Float64Value:
		u := math.Float64bits(float64(v))
		if u&(1<<63) != 0 {
			buf = append(buf, float64NegTag)
			u = ^u
		} else {
			buf = append(buf, float64PosTag)
		}
		return appendUint64(buf, u)
	case sql.StringValue:
		buf = append(buf, stringKeyTag)
		return encodeBytes(buf, []byte(v))
	case sql.BytesValue:
		buf = append(buf, bytesKeyTag)
		return encodeBytes(buf, []byte(v))
	default:
		panic("tuplestore: index: unexpected value type")
	}
}

func appendUint64(buf []byte, u uint64) []byte {
	return append(buf, byte(u>>56), byte(u>>48), byte(u>>40), byte(u>>32),
		byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

// encodeBytes escapes 0x00 so a NUL terminator can unambiguously mark the
// end of a variable-length field within a composite key.
func encodeBytes(buf, b []byte) []byte {
	for _, c := range b {
		if c == 0 || c == 1 {
			buf = append(buf, 1)
		}
		buf = append(buf, c)
	}
	return append(buf, 0)
}
