package p4rt

import (
	"fmt"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/code"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"

	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// UpdateError is one failed update within a Write batch: its index in
// the submitted request, the target's canonical status code, and the
// message the target attached (spec §7, "P4RuntimeError").
type UpdateError struct {
	Index   int
	Code    code.Code
	Message string
}

// WriteError aggregates the per-update failures of a batch Write. A
// failed Write whose status carries per-update details yields a
// *WriteError enumerating every update that failed; updates not listed
// succeeded (spec §4.4(d)). Other failures keep their original error.
type WriteError struct {
	Failures []UpdateError
}

func (e *WriteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "write failed: %d update(s) rejected", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; [%d] %s: %s", f.Index, f.Code, f.Message)
	}
	return b.String()
}

// ParseWriteError decodes the google.rpc.Status details gRPC attaches
// to a failed Write call into a *WriteError. Returns the original err
// unchanged if it doesn't carry P4Runtime's per-update error details.
func ParseWriteError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var failures []UpdateError
	for i, any := range st.Proto().GetDetails() {
		detail, decErr := decodeErrorDetail(any)
		if decErr != nil {
			continue
		}
		if detail.GetCanonicalCode() == int32(code.Code_OK) {
			continue
		}
		failures = append(failures, UpdateError{
			Index:   i,
			Code:    code.Code(detail.GetCanonicalCode()),
			Message: detail.GetMessage(),
		})
	}
	if len(failures) == 0 {
		return err
	}
	return &WriteError{Failures: failures}
}

func decodeErrorDetail(a *anypb.Any) (*p4v1.Error, error) {
	detail := &p4v1.Error{}
	if err := a.UnmarshalTo(detail); err == nil {
		return detail, nil
	}
	// Some targets nest a bare google.rpc.Status instead of p4.v1.Error;
	// translate its code/message into the same shape.
	wrapped := &rpcstatus.Status{}
	if err := a.UnmarshalTo(wrapped); err != nil {
		return nil, err
	}
	return &p4v1.Error{CanonicalCode: wrapped.GetCode(), Message: wrapped.GetMessage()}, nil
}
