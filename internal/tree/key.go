package tree

import (
	"cmp"
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"treekv/internal/storage"
)

// Kind identifies the type of a Key. The values double as the on-disk tag.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindUint
	KindFloat
	KindString
)

// Key is a type-tagged, totally ordered tree key. Numeric kinds compare
// numerically with each other, so an int-keyed tree can be chopped at a
// float threshold; numbers order before strings.
//
// The zero Key is not valid; use the constructors.
type Key struct {
	kind Kind
	num  uint64 // int64 bits, uint64 value, or float64 bits
	str  string
}

// Int returns a signed integer key.
func Int(v int64) Key { return Key{kind: KindInt, num: uint64(v)} }

// Uint returns an unsigned integer key.
func Uint(v uint64) Key { return Key{kind: KindUint, num: v} }

// Float returns a floating-point key. Floats are storable keys and also
// serve as range thresholds between integer keys.
func Float(v float64) Key { return Key{kind: KindFloat, num: math.Float64bits(v)} }

// String returns a string key, compared byte-wise.
func String(v string) Key { return Key{kind: KindString, str: v} }

// Kind returns the key's kind.
func (k Key) Kind() Kind { return k.kind }

// Compare returns -1, 0 or 1 ordering k against o.
func (k Key) Compare(o Key) int {
	kn, on := k.kind != KindString, o.kind != KindString
	if kn != on {
		// numbers sort before strings
		if kn {
			return -1
		}
		return 1
	}
	if !kn {
		return strings.Compare(k.str, o.str)
	}
	return compareNumeric(k, o)
}

// compareNumeric orders two numeric keys without going through a lossy
// common type where it can be avoided. Int/uint against float falls back
// to float64 conversion, which is exact for magnitudes below 2^53.
func compareNumeric(a, b Key) int {
	if a.kind == b.kind {
		switch a.kind {
		case KindInt:
			return cmp.Compare(int64(a.num), int64(b.num))
		case KindUint:
			return cmp.Compare(a.num, b.num)
		default:
			return cmp.Compare(math.Float64frombits(a.num), math.Float64frombits(b.num))
		}
	}
	if a.kind == KindInt && b.kind == KindUint {
		if int64(a.num) < 0 {
			return -1
		}
		return cmp.Compare(a.num, b.num)
	}
	if a.kind == KindUint && b.kind == KindInt {
		return -compareNumeric(b, a)
	}
	// exactly one side is a float
	return cmp.Compare(a.float(), b.float())
}

func (k Key) float() float64 {
	switch k.kind {
	case KindInt:
		return float64(int64(k.num))
	case KindUint:
		return float64(k.num)
	default:
		return math.Float64frombits(k.num)
	}
}

// String formats the key for display.
func (k Key) String() string {
	switch k.kind {
	case KindInt:
		return strconv.FormatInt(int64(k.num), 10)
	case KindUint:
		return strconv.FormatUint(k.num, 10)
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(k.num), 'g', -1, 64)
	case KindString:
		return k.str
	default:
		return "<invalid key>"
	}
}

// encode appends the tagged key encoding: 1 tag byte, then 8 big-endian
// bytes for numeric kinds or the raw UTF-8 bytes for strings.
func (k Key) encode() []byte {
	switch k.kind {
	case KindString:
		out := make([]byte, 1+len(k.str))
		out[0] = byte(k.kind)
		copy(out[1:], k.str)
		return out
	default:
		var out [9]byte
		out[0] = byte(k.kind)
		binary.BigEndian.PutUint64(out[1:], k.num)
		return out[:]
	}
}

// decodeKey decodes a tagged key field produced by encode.
func decodeKey(b []byte) (Key, error) {
	if len(b) < 1 {
		return Key{}, errors.Wrap(storage.ErrMalformedRecord, "empty key field")
	}
	switch Kind(b[0]) {
	case KindInt, KindUint, KindFloat:
		if len(b) != 9 {
			return Key{}, errors.Wrapf(storage.ErrMalformedRecord, "numeric key field of %d bytes", len(b))
		}
		return Key{kind: Kind(b[0]), num: binary.BigEndian.Uint64(b[1:])}, nil
	case KindString:
		return Key{kind: KindString, str: string(b[1:])}, nil
	default:
		return Key{}, errors.Wrapf(storage.ErrMalformedRecord, "unknown key tag %d", b[0])
	}
}
