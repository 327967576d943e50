/*
Package storage implements the engine's persistence port over bbolt: a
Git-like content-addressed object store of blobs, trees, and commits, plus a
refs bucket with compare-and-swap semantics.

Object identities are the hex SHA-256 of their own content — writing the
same patch twice yields the same blob oid, and a commit's sha is a pure
function of its tree, parents, and message. This is what makes patch replay
idempotent and lets two replicas that independently construct the same
patch converge on the same object graph without coordination.

Refs (refs/warp/<graph>/writers/<writerId>, refs/warp/<graph>/trust/records)
are the only mutable state in the store. CompareAndSwapRef is the sole write
path for them; every chain append in pkg/patch and pkg/trust goes through it
so concurrent writers detect races instead of silently forking.
*/
package storage
