package merkle

/*

# Sorted pair merkle trees for claim distributions

A distribution commits to a set of (index, recipient, amount) triples with a
single 32 byte root. Recipients are given the sibling path for their leaf out
of band and present it when claiming.

## Leaves

	leaf = SHA-256( le32(index) || recipient[32] || le64(amount) )

The integer fields are written little endian. This matches the encoding used
by the on-chain program that originally published these roots, so roots and
proofs are interchangeable with deployed distributions.

## Interior nodes

Interior nodes use the sorted pair rule

	node = SHA-256( min(a, b) || max(a, b) )

where min and max are byte wise lexicographic. The position of a node (left or
right child) is never part of the hash. This means a proof is just the list of
sibling digests, there are no side flags to transmit. The cost is that trees
built with a positional combination rule are NOT compatible. The builder in
this package and every verifier must agree on the sorted rule.

	          root
	        /      \
	      n01       l2      <- odd trailing nodes are promoted unchanged
	     /   \
	   l0     l1

The proof for l1 above is [l0, l2].

## Resource bounds

A proof is rejected if it has more than MaxProofLen elements. This supports
trees of up to 2^64 leaves. The check happens before any hashing so that a
hostile caller can not force unbounded work.

*/
