package tree

import (
	"treekv/internal/storage"
)

// Entry is one key/value pair returned by lookups and range queries.
type Entry struct {
	Key   Key
	Value []byte
}

// Tree is the copy-on-write BST over one record file. Set mutates only
// the in-memory root reference; Commit makes it durable. All other state
// lives behind lazy references reachable from the root.
type Tree struct {
	file *storage.File
	root *NodeRef
}

// New builds a tree on f, reading the currently committed root.
func New(f *storage.File) (*Tree, error) {
	t := &Tree{file: f}
	if err := t.refreshRoot(); err != nil {
		return nil, err
	}
	return t, nil
}

// refreshRoot re-reads the committed root address from the superblock.
func (t *Tree) refreshRoot() error {
	addr, err := t.file.RootAddress()
	if err != nil {
		return err
	}
	t.root = nodeRefAt(addr)
	return nil
}

// refreshUnlessLocked refreshes the root so readers observe the latest
// commit, unless this handle holds the write lock, in which case the
// in-memory root carries uncommitted edits that must not be discarded.
func (t *Tree) refreshUnlessLocked() error {
	if t.file.Locked() {
		return nil
	}
	return t.refreshRoot()
}

// Get returns the value stored under key.
func (t *Tree) Get(key Key) ([]byte, error) {
	if err := t.refreshUnlessLocked(); err != nil {
		return nil, err
	}
	node, err := t.lookup(key)
	if err != nil {
		return nil, err
	}
	return node.value.Resolve(t.file)
}

// lookup descends from the current root to the node holding key.
func (t *Tree) lookup(key Key) (*Node, error) {
	node, err := t.root.Resolve(t.file)
	if err != nil {
		return nil, err
	}
	for node != nil {
		switch c := key.Compare(node.key); {
		case c < 0:
			node, err = node.left.Resolve(t.file)
		case c > 0:
			node, err = node.right.Resolve(t.file)
		default:
			return node, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, ErrKeyNotFound
}

// Set inserts or replaces key, building a new root in memory. The change
// is not durable, and not visible to other handles, until Commit.
func (t *Tree) Set(key Key, value []byte) error {
	newly, err := t.file.Lock()
	if err != nil {
		return err
	}
	if newly {
		// don't clobber state committed while we weren't the writer
		if err := t.refreshRoot(); err != nil {
			return err
		}
	}
	node, err := t.root.Resolve(t.file)
	if err != nil {
		return err
	}
	root, err := t.insert(node, key, newValueRef(value))
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

// insert rebuilds the path from node down to key's position, sharing every
// subtree the path does not touch. An equal key keeps both children and
// swaps in the new value reference.
func (t *Tree) insert(node *Node, key Key, value *ValueRef) (*NodeRef, error) {
	if node == nil {
		return newNodeRef(newLeaf(key, value)), nil
	}
	switch c := key.Compare(node.key); {
	case c < 0:
		left, err := node.left.Resolve(t.file)
		if err != nil {
			return nil, err
		}
		ref, err := t.insert(left, key, value)
		if err != nil {
			return nil, err
		}
		return newNodeRef(node.withLeft(ref)), nil
	case c > 0:
		right, err := node.right.Resolve(t.file)
		if err != nil {
			return nil, err
		}
		ref, err := t.insert(right, key, value)
		if err != nil {
			return nil, err
		}
		return newNodeRef(node.withRight(ref)), nil
	default:
		return newNodeRef(node.withValue(value)), nil
	}
}

// Commit stores the dirty path bottom-up and republishes the root address.
// This is the single durability point; it also releases the write lock.
func (t *Tree) Commit() error {
	if err := t.root.Store(t.file); err != nil {
		return err
	}
	return t.file.CommitRootAddress(t.root.Address())
}

// Delete is not supported: the tree keeps parity with a companion balanced
// variant that cannot delete cheaply.
func (t *Tree) Delete(Key) error {
	return ErrUnsupported
}

// GetMin returns the value of the leftmost (smallest-keyed) node.
func (t *Tree) GetMin() ([]byte, error) {
	if err := t.refreshUnlessLocked(); err != nil {
		return nil, err
	}
	node, err := t.root.Resolve(t.file)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrKeyNotFound
	}
	for {
		next, err := node.left.Resolve(t.file)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return node.value.Resolve(t.file)
		}
		node = next
	}
}

// GetLeft returns the entry of the literal left child of the node holding
// key. Note this is the immediate child, not the in-order predecessor.
func (t *Tree) GetLeft(key Key) (Entry, error) {
	return t.child(key, func(n *Node) *NodeRef { return n.left })
}

// GetRight returns the entry of the literal right child of the node
// holding key. Note this is the immediate child, not the in-order
// successor.
func (t *Tree) GetRight(key Key) (Entry, error) {
	return t.child(key, func(n *Node) *NodeRef { return n.right })
}

func (t *Tree) child(key Key, side func(*Node) *NodeRef) (Entry, error) {
	if err := t.refreshUnlessLocked(); err != nil {
		return Entry{}, err
	}
	node, err := t.lookup(key)
	if err != nil {
		return Entry{}, err
	}
	child, err := side(node).Resolve(t.file)
	if err != nil {
		return Entry{}, err
	}
	if child == nil {
		return Entry{}, ErrKeyNotFound
	}
	return t.entry(child)
}

func (t *Tree) entry(n *Node) (Entry, error) {
	v, err := n.value.Resolve(t.file)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Key: n.key, Value: v}, nil
}

// InOrder returns every entry reachable from ref in key order. A nil
// reference yields an empty slice.
func (t *Tree) InOrder(ref *NodeRef) ([]Entry, error) {
	node, err := ref.Resolve(t.file)
	if err != nil {
		return nil, err
	}
	return t.inOrder(node, nil)
}

// Root returns the tree's current root reference, for traversals that
// start at the top.
func (t *Tree) Root() *NodeRef {
	return t.root
}

// Scan returns every entry in the tree in key order, observing the latest
// commit unless this handle is the writer.
func (t *Tree) Scan() ([]Entry, error) {
	if err := t.refreshUnlessLocked(); err != nil {
		return nil, err
	}
	return t.InOrder(t.root)
}

func (t *Tree) inOrder(node *Node, out []Entry) ([]Entry, error) {
	if node == nil {
		return out, nil
	}
	left, err := node.left.Resolve(t.file)
	if err != nil {
		return nil, err
	}
	out, err = t.inOrder(left, out)
	if err != nil {
		return nil, err
	}
	e, err := t.entry(node)
	if err != nil {
		return nil, err
	}
	out = append(out, e)
	right, err := node.right.Resolve(t.file)
	if err != nil {
		return nil, err
	}
	return t.inOrder(right, out)
}

// Chop returns every entry with key <= threshold, in the order produced by
// the expand-point walk, costing O(height + result size) rather than a
// full scan.
//
// The descent toward threshold records a node each time it turns right
// into a non-nil child (that node's key qualifies and so does its entire
// left subtree) and records the final node it lands on. Each expand point
// then contributes its own entry when its key qualifies, plus the full
// in-order traversal of its left subtree, which is entirely below the
// threshold by BST ordering.
func (t *Tree) Chop(threshold Key) ([]Entry, error) {
	if err := t.refreshUnlessLocked(); err != nil {
		return nil, err
	}
	node, err := t.root.Resolve(t.file)
	if err != nil {
		return nil, err
	}
	out := []Entry{}
	if node == nil {
		return out, nil
	}

	var expand []*Node
	last := node
	for node != nil {
		last = node
		switch c := threshold.Compare(node.key); {
		case c < 0:
			node, err = node.left.Resolve(t.file)
		case c > 0:
			var right *Node
			right, err = node.right.Resolve(t.file)
			if err == nil && right != nil {
				expand = append(expand, node)
			}
			node = right
		default:
			node = nil
		}
		if err != nil {
			return nil, err
		}
	}
	expand = append(expand, last)

	for _, n := range expand {
		if n.key.Compare(threshold) <= 0 {
			e, err := t.entry(n)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		left, err := n.left.Resolve(t.file)
		if err != nil {
			return nil, err
		}
		out, err = t.inOrder(left, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
