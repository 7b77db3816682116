package siptransaction

// Request is the minimal accessor surface of §6's "SIP wire surface": the
// transaction reads a branch, a method and a Call-ID from the request it
// owns, and treats everything else as opaque bytes owned by the parser
// collaborator (see the sipgo adapter in sipgo.go).
type Request interface {
	Method() string
	Branch() string
	CallID() string
	// Marshal returns the wire bytes to hand to Transport.Send, including
	// any retransmission (the transaction does not mutate the request).
	Marshal() []byte
}

// Response is the matching accessor surface for incoming responses.
type Response interface {
	StatusCode() int
	CSeqMethod() string
	Branch() string
}

// Transport is the capability set of §6 reduced to what a client
// transaction needs: fire-and-forget send. The transaction never reads
// from a socket itself; responses are pushed in via HandleResponse.
type Transport interface {
	Send(pkt []byte) error
	Reliable() bool
}

// matches implements §6's response-to-transaction rule: the top Via branch
// equals the transaction's branch and the method in CSeq equals the
// transaction's method (ACK matches INVITE, handled by the caller before
// this function is reached since this package only implements non-INVITE).
func matches(req Request, resp Response) bool {
	return resp.Branch() == req.Branch() && resp.CSeqMethod() == req.Method()
}
