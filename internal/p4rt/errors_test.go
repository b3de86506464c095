package p4rt

import (
	"testing"

	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
	"google.golang.org/genproto/googleapis/rpc/code"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
)

func TestParseWriteErrorExtractsPerUpdateFailures(t *testing.T) {
	ok, err := anypb.New(&p4v1.Error{CanonicalCode: int32(code.Code_OK)})
	if err != nil {
		t.Fatal(err)
	}
	failed, err := anypb.New(&p4v1.Error{
		CanonicalCode: int32(code.Code_ALREADY_EXISTS),
		Message:       "duplicate entry",
	})
	if err != nil {
		t.Fatal(err)
	}

	st := status.New(codes.Unknown, "write failed")
	stProto := st.Proto()
	stProto.Details = []*anypb.Any{ok, failed}
	st = status.FromProto(stProto)

	parsed := ParseWriteError(st.Err())
	we, ok2 := parsed.(*WriteError)
	if !ok2 {
		t.Fatalf("expected *WriteError, got %T: %v", parsed, parsed)
	}
	if len(we.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(we.Failures))
	}
	if we.Failures[0].Index != 1 || we.Failures[0].Message != "duplicate entry" {
		t.Fatalf("unexpected failure: %+v", we.Failures[0])
	}
}

func TestParseWriteErrorPassesThroughNonP4Errors(t *testing.T) {
	err := status.Error(codes.Unavailable, "connection refused")
	if parsed := ParseWriteError(err); parsed != err {
		t.Fatalf("expected original error passed through, got %v", parsed)
	}
}
