// Package comm implements the message-passing substrate for SPMD
// (single-program, multiple-data) numerical code.
//
// A group of cooperating ranks is created with NewGroup or driven end to
// end with Run, which launches one goroutine per rank. Every rank holds a
// *Comm handle onto the shared group and executes the identical program
// text; parallelism comes entirely from each rank operating on its own
// data slice and exchanging messages at well-defined synchronization
// points. There is no scheduler and no cancellation: a rank stuck in a
// receive with no matching send is a protocol bug in the caller, exactly
// as it would be over MPI.
//
// Point-to-point primitives:
//
//   - Send:  standard-mode send; the buffer is copied and enqueued, the
//     call returns immediately and the caller may reuse the buffer.
//   - Ssend: synchronous send; returns only once the matching receive
//     has consumed the message.
//   - Recv:  blocks until a message with matching (source, tag) arrives.
//     Messages from the same source with other tags are queued, never
//     dropped, so tag-based protocols cannot lose data to reordering.
//   - Isend/Irecv: non-blocking variants returning a *Request. The
//     Request keeps a reference to the caller's buffer until Wait
//     returns; the buffer must not be mutated before that.
//
// Collectives (Sum, AllSum, Broadcast, Gather, Scatter) are built on the
// point-to-point layer using reserved tags and complete only when every
// participating rank has reached the matching call. On a size-1 group
// they degenerate to local copies or no-ops.
//
// Subgroups: NewSubgroup carves a new communicator out of a subset of
// ranks. The call is collective over the members of the subset and
// returns nil on ranks outside it.
package comm
