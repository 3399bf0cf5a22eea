package tree

import (
	"treekv/internal/storage"
)

// ValueRef is a lazy, write-once reference to a value record. It holds a
// record address, an in-memory value, or both:
//
//	unresolved:     addr != 0, cached == false  (on disk, not yet read)
//	resolved dirty: addr == 0, cached == true   (in memory, not yet written)
//	resolved clean: addr != 0, cached == true
//
// Resolve caches forever; Store assigns the address exactly once.
type ValueRef struct {
	addr   uint64
	val    []byte
	cached bool
}

// newValueRef returns a dirty reference holding v in memory.
func newValueRef(v []byte) *ValueRef {
	return &ValueRef{val: v, cached: true}
}

// valueRefAt returns an unresolved reference to the record at addr.
func valueRefAt(addr uint64) *ValueRef {
	return &ValueRef{addr: addr}
}

// Address returns the record address, 0 if not yet stored.
func (r *ValueRef) Address() uint64 { return r.addr }

// Resolve returns the referent, reading and caching it on first use.
func (r *ValueRef) Resolve(f *storage.File) ([]byte, error) {
	if r.cached {
		return r.val, nil
	}
	if r.addr == 0 {
		return nil, nil
	}
	b, err := f.Read(r.addr)
	if err != nil {
		return nil, err
	}
	r.val = b
	r.cached = true
	return r.val, nil
}

// Store appends the value record if this reference is dirty. A reference
// with an address, or holding nothing, is left alone.
func (r *ValueRef) Store(f *storage.File) error {
	if r.addr != 0 || !r.cached {
		return nil
	}
	addr, err := f.Write(r.val)
	if err != nil {
		return err
	}
	r.addr = addr
	return nil
}

// NodeRef is the node counterpart of ValueRef. Resolving decodes the
// record into a Node whose own references stay lazy; storing first stores
// the node's value and children so the whole dirty subtree lands on disk
// before this node's record does.
type NodeRef struct {
	addr     uint64
	node     *Node
	resolved bool
}

// newNodeRef returns a dirty reference holding n in memory.
func newNodeRef(n *Node) *NodeRef {
	return &NodeRef{node: n, resolved: true}
}

// nodeRefAt returns an unresolved reference to the record at addr.
// addr 0 is the nil reference.
func nodeRefAt(addr uint64) *NodeRef {
	return &NodeRef{addr: addr}
}

// nilNodeRef returns a reference to nothing (a leaf's child).
func nilNodeRef() *NodeRef {
	return &NodeRef{resolved: true}
}

// Address returns the record address, 0 if dirty or nil.
func (r *NodeRef) Address() uint64 { return r.addr }

// Resolve returns the referenced node, reading and decoding the record on
// first use. A nil reference resolves to nil with no error.
func (r *NodeRef) Resolve(f *storage.File) (*Node, error) {
	if r.resolved {
		return r.node, nil
	}
	if r.addr == 0 {
		r.resolved = true
		return nil, nil
	}
	b, err := f.Read(r.addr)
	if err != nil {
		return nil, err
	}
	n, err := decodeNode(b)
	if err != nil {
		return nil, err
	}
	r.node = n
	r.resolved = true
	return r.node, nil
}

// Store flushes the dirty subtree under this reference and then appends
// this node's own record. Already-stored and nil references are no-ops,
// which is what terminates the recursion at shared clean subtrees.
func (r *NodeRef) Store(f *storage.File) error {
	if r.addr != 0 || r.node == nil {
		return nil
	}
	if err := r.node.value.Store(f); err != nil {
		return err
	}
	if err := r.node.left.Store(f); err != nil {
		return err
	}
	if err := r.node.right.Store(f); err != nil {
		return err
	}
	addr, err := f.Write(encodeNode(r.node))
	if err != nil {
		return err
	}
	r.addr = addr
	return nil
}
