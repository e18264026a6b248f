package comm

// Request is the handle of a non-blocking transfer. It retains a
// reference to the caller's buffer until Wait returns, so a buffer
// passed to Isend or Irecv stays reachable (and must stay unmutated)
// for the lifetime of the in-flight request.
type Request struct {
	buf  any
	done chan struct{}
}

// Wait blocks until the transfer has completed and releases the buffer
// reference. Waiting on a nil or already-completed request is a no-op.
func (r *Request) Wait() {
	if r == nil {
		return
	}
	<-r.done
	r.buf = nil
}

var completed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Isend starts a non-blocking standard-mode send of buf to dest. The
// message payload is snapshotted at call time; the returned Request
// keeps buf alive until Wait.
func Isend[T Payload](c *Comm, buf []T, dest, tag int) *Request {
	Send(c, buf, dest, tag)
	return &Request{buf: buf, done: completed}
}

// Irecv starts a non-blocking receive into buf from src. buf must not be
// read before Wait returns.
func Irecv[T Payload](c *Comm, buf []T, src, tag int) *Request {
	r := &Request{buf: buf, done: make(chan struct{})}
	go func() {
		Recv(c, buf, src, tag)
		close(r.done)
	}()
	return r
}
