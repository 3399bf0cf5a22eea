// Package tree implements the copy-on-write binary search tree over the
// record file in internal/storage.
//
// Nodes are immutable: an insert rebuilds only the path from the root to
// the touched leaf and shares every untouched subtree by reference. A node
// or value lives behind a lazy reference that holds a record address, an
// in-memory value, or both; dereferencing reads and caches, storing
// assigns an address exactly once. Commit flushes the dirty path bottom-up
// and then republishes the root address, which is the single durability
// point: an uncommitted insert is visible only to the tree that made it.
//
// The tree is intentionally unbalanced and does not support deletion.
package tree
