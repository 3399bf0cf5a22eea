package tree

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"treekv/internal/storage"
)

// Node record layout, all integers big-endian:
//
//	| left addr | key len | key           | value addr | right addr |
//	|    8B     |   4B    | tag + payload |     8B     |     8B     |
//
// Child and value addresses of 0 mean nil. The key field is the tagged
// encoding from key.go.

const nodeFixedLen = 8 + 4 + 8 + 8

// encodeNode serializes a node whose references have all been stored.
func encodeNode(n *Node) []byte {
	key := n.key.encode()
	out := make([]byte, nodeFixedLen+len(key))
	binary.BigEndian.PutUint64(out[0:8], n.left.Address())
	binary.BigEndian.PutUint32(out[8:12], uint32(len(key)))
	copy(out[12:], key)
	off := 12 + len(key)
	binary.BigEndian.PutUint64(out[off:off+8], n.value.Address())
	binary.BigEndian.PutUint64(out[off+8:off+16], n.right.Address())
	return out
}

// decodeNode rebuilds a node from its record. The children and value come
// back as unresolved references; decoding never touches the rest of the
// tree.
func decodeNode(b []byte) (*Node, error) {
	if len(b) < nodeFixedLen {
		return nil, errors.Wrapf(storage.ErrMalformedRecord, "node record of %d bytes", len(b))
	}
	keyLen := int(binary.BigEndian.Uint32(b[8:12]))
	if len(b) != nodeFixedLen+keyLen {
		return nil, errors.Wrapf(storage.ErrMalformedRecord,
			"node record of %d bytes wants %d-byte key", len(b), keyLen)
	}
	key, err := decodeKey(b[12 : 12+keyLen])
	if err != nil {
		return nil, err
	}
	off := 12 + keyLen
	return &Node{
		left:  nodeRefAt(binary.BigEndian.Uint64(b[0:8])),
		key:   key,
		value: valueRefAt(binary.BigEndian.Uint64(b[off : off+8])),
		right: nodeRefAt(binary.BigEndian.Uint64(b[off+8 : off+16])),
	}, nil
}
