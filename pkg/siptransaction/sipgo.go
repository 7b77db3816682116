package siptransaction

import "github.com/emiago/sipgo/sip"

// sipgoRequest adapts *sip.Request to Request, so the transaction core
// never imports a SIP parser directly (§1 Non-goals: "the core only
// observes the wire surface described in §6").
type sipgoRequest struct{ req *sip.Request }

// WrapRequest adapts a sipgo request into the Request the transaction
// package consumes.
func WrapRequest(req *sip.Request) Request { return sipgoRequest{req: req} }

func (r sipgoRequest) Method() string { return r.req.Method.String() }

func (r sipgoRequest) Branch() string {
	if via := r.req.Via(); via != nil {
		return via.Params["branch"]
	}
	return ""
}

func (r sipgoRequest) CallID() string {
	if cid := r.req.CallID(); cid != nil {
		return cid.Value()
	}
	return ""
}

func (r sipgoRequest) Marshal() []byte {
	return []byte(r.req.String())
}

// sipgoResponse adapts *sip.Response to Response.
type sipgoResponse struct{ resp *sip.Response }

// WrapResponse adapts a sipgo response into the Response the transaction
// package consumes.
func WrapResponse(resp *sip.Response) Response { return sipgoResponse{resp: resp} }

func (r sipgoResponse) StatusCode() int { return int(r.resp.StatusCode) }

func (r sipgoResponse) CSeqMethod() string {
	if cseq := r.resp.CSeq(); cseq != nil {
		return cseq.MethodName.String()
	}
	return ""
}

func (r sipgoResponse) Branch() string {
	if via := r.resp.Via(); via != nil {
		return via.Params["branch"]
	}
	return ""
}
