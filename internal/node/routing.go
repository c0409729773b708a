package node

import "github.com/algorep/dalloc/internal/wire"

// isAncestor reports whether a lies on the root-to-n path of a k-ary tree
// of treeSize ranks, and returns the chain of ancestors of n (nearest to
// n first) up to and including a, if found.
//
// Walks n ← ⌊(n-1)/k⌋, appending each step, until the computed ancestor
// equals a (found) or reaches 0 without matching (not found). Each call
// starts from a fresh nil slice so no state leaks between calls.
func isAncestor(a, n Rank, k, treeSize int) (bool, []Rank) {
	var path []Rank
	for {
		if int(n) >= treeSize || n == 0 {
			return false, path
		}
		an := Rank((int(n) - 1) / k)
		path = append(path, an)
		if an == a {
			return true, path
		}
		if an == 0 {
			return false, nil
		}
		n = an
	}
}

// nextHop decides which rank to forward a message toward, given that it
// is ultimately addressed to target (either a vid's owner during Phase A,
// or a response's master during Phase B, following the same rule for
// both). If target is a direct child or the parent, that is the next
// hop. Otherwise isAncestor determines whether self sits on the path from
// root to target: if so, the next hop is the child on that path; if not,
// it's the parent.
func (n *Node) nextHop(target Rank) Rank {
	if n.isChild(target) || target == n.parent {
		return target
	}
	ok, path := isAncestor(n.rank, target, n.nbChildren, n.treeSize)
	if !ok {
		return n.parent
	}
	// path[len-1] == n.rank (self); path[len-2] is self's child on the
	// route toward target. When self is target's direct parent the path
	// has only one element — forward straight to target instead of
	// indexing out of range.
	if len(path) < 2 {
		return target
	}
	return path[len(path)-2]
}

// Rank is a local alias so this package reads naturally; it is always
// wire.Rank.
type Rank = wire.Rank
