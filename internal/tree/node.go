package tree

// Node is one immutable tree node. A change never mutates a Node; it
// builds a replacement via the with* helpers, sharing every untouched
// reference with the original.
type Node struct {
	left  *NodeRef
	key   Key
	value *ValueRef
	right *NodeRef
}

// newLeaf returns a fresh leaf holding value under key, with nil children.
func newLeaf(key Key, value *ValueRef) *Node {
	return &Node{
		left:  nilNodeRef(),
		key:   key,
		value: value,
		right: nilNodeRef(),
	}
}

// Key returns the node's key.
func (n *Node) Key() Key { return n.key }

// withLeft clones n with a replaced left reference.
func (n *Node) withLeft(left *NodeRef) *Node {
	return &Node{left: left, key: n.key, value: n.value, right: n.right}
}

// withRight clones n with a replaced right reference.
func (n *Node) withRight(right *NodeRef) *Node {
	return &Node{left: n.left, key: n.key, value: n.value, right: right}
}

// withValue clones n with a replaced value reference.
func (n *Node) withValue(value *ValueRef) *Node {
	return &Node{left: n.left, key: n.key, value: value, right: n.right}
}
