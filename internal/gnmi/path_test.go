package gnmi

import (
	"testing"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
)

func TestParsePathBasic(t *testing.T) {
	p, err := ParsePath("/interfaces/interface[name=eth0]/state/counters")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	want := &gnmipb.Path{Elem: []*gnmipb.PathElem{
		{Name: "interfaces"},
		{Name: "interface", Key: map[string]string{"name": "eth0"}},
		{Name: "state"},
		{Name: "counters"},
	}}
	if len(p.Elem) != len(want.Elem) {
		t.Fatalf("got %d elems, want %d", len(p.Elem), len(want.Elem))
	}
	for i, e := range p.Elem {
		if e.Name != want.Elem[i].Name {
			t.Errorf("elem %d name = %q, want %q", i, e.Name, want.Elem[i].Name)
		}
		for k, v := range want.Elem[i].Key {
			if e.Key[k] != v {
				t.Errorf("elem %d key %q = %q, want %q", i, k, e.Key[k], v)
			}
		}
	}
}

func TestParsePathOrigin(t *testing.T) {
	p, err := ParsePath("openconfig:/interfaces/interface[name=eth0]")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	if p.Origin != "openconfig" {
		t.Errorf("origin = %q, want openconfig", p.Origin)
	}
	if len(p.Elem) != 2 {
		t.Fatalf("got %d elems, want 2", len(p.Elem))
	}
}

func TestParsePathMultipleKeys(t *testing.T) {
	p, err := ParsePath("/a/b[k1=v1][k2=v2]")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	elem := p.Elem[1]
	if elem.Key["k1"] != "v1" || elem.Key["k2"] != "v2" {
		t.Errorf("keys = %v, want k1=v1 k2=v2", elem.Key)
	}
}

func TestParsePathEmpty(t *testing.T) {
	for _, s := range []string{"", "/"} {
		p, err := ParsePath(s)
		if err != nil {
			t.Fatalf("ParsePath(%q): %v", s, err)
		}
		if len(p.Elem) != 0 {
			t.Errorf("ParsePath(%q) = %d elems, want 0", s, len(p.Elem))
		}
	}
}

func TestParsePathEscapedSlash(t *testing.T) {
	p, err := ParsePath(`/a/b[k=va\/lue]/c`)
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	if len(p.Elem) != 3 {
		t.Fatalf("got %d elems, want 3", len(p.Elem))
	}
	if p.Elem[1].Key["k"] != "va/lue" {
		t.Errorf("key = %q, want va/lue", p.Elem[1].Key["k"])
	}
}

func TestParsePathUnbalancedBracket(t *testing.T) {
	if _, err := ParsePath("/a/b[k=v"); err == nil {
		t.Fatal("expected error for unbalanced bracket")
	}
}

func TestParsePathMissingEquals(t *testing.T) {
	if _, err := ParsePath("/a/b[novalue]"); err == nil {
		t.Fatal("expected error for predicate missing '='")
	}
}

func TestPathToStringRoundTrip(t *testing.T) {
	in := "/interfaces/interface[name=eth0]/state/counters"
	p, err := ParsePath(in)
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	out := PathToString(p)
	if out != in {
		t.Errorf("PathToString round trip = %q, want %q", out, in)
	}
}

func TestPathToStringOrigin(t *testing.T) {
	p := &gnmipb.Path{
		Origin: "openconfig",
		Elem:   []*gnmipb.PathElem{{Name: "interfaces"}},
	}
	if got, want := PathToString(p), "openconfig:/interfaces"; got != want {
		t.Errorf("PathToString = %q, want %q", got, want)
	}
}

func TestPathToStringMultiKeySorted(t *testing.T) {
	p := &gnmipb.Path{Elem: []*gnmipb.PathElem{
		{Name: "a", Key: map[string]string{"z": "1", "a": "2"}},
	}}
	if got, want := PathToString(p), "/a[a=2][z=1]"; got != want {
		t.Errorf("PathToString = %q, want %q", got, want)
	}
}
