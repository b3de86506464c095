// Package gnmi implements the auxiliary gNMI client (spec §4.6): the
// path-string grammar and a Get/Set/Subscribe client built on the
// openconfig/gnmi generated stub.
package gnmi

import (
	"fmt"
	"slices"
	"strings"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
)

// ParsePath parses a slash-delimited gNMI path string into a *gnmipb.Path,
// compatible with the grammar used by openconfig's gnmi_cli (spec §4.6):
//
//	[origin:][/]elem[/elem...]
//	elem := name[key=value][key2=value2]...
//
// A leading "origin:" segment (no slashes before the colon) sets
// Path.Origin. Keys and values may escape '/', '[', ']', and '\' with a
// backslash. An empty path ("" or "/") yields a Path with no elements.
func ParsePath(s string) (*gnmipb.Path, error) {
	path := &gnmipb.Path{}

	if i := originIndex(s); i >= 0 {
		path.Origin = s[:i]
		s = s[i+1:]
	}
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return path, nil
	}

	segments, err := splitPath(s)
	if err != nil {
		return nil, err
	}
	for _, seg := range segments {
		elem, err := parseElem(seg)
		if err != nil {
			return nil, err
		}
		path.Elem = append(path.Elem, elem)
	}
	return path, nil
}

// originIndex returns the index of a ':' that precedes the first
// unescaped '/', meaning it introduces an origin prefix rather than a
// value inside brackets. Returns -1 if there is no origin prefix.
func originIndex(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '/', '[':
			return -1
		case ':':
			return i
		}
	}
	return -1
}

// splitPath splits a path body on unescaped, unbracketed '/'.
func splitPath(s string) ([]string, error) {
	var segments []string
	var cur strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("gnmi: path %q ends in a dangling escape", s)
			}
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
			continue
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("gnmi: path %q has unbalanced ']'", s)
			}
		case '/':
			if depth == 0 {
				segments = append(segments, cur.String())
				cur.Reset()
				continue
			}
		}
		cur.WriteByte(c)
	}
	if depth != 0 {
		return nil, fmt.Errorf("gnmi: path %q has unbalanced '['", s)
	}
	segments = append(segments, cur.String())
	return segments, nil
}

// parseElem parses one "name[k=v][k2=v2]" path element.
func parseElem(seg string) (*gnmipb.PathElem, error) {
	name, rest, err := splitNameAndPredicates(seg)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("gnmi: path element %q has no name", seg)
	}
	elem := &gnmipb.PathElem{Name: name}
	for _, pred := range rest {
		k, v, err := splitPredicate(pred)
		if err != nil {
			return nil, err
		}
		if elem.Key == nil {
			elem.Key = make(map[string]string)
		}
		elem.Key[k] = v
	}
	return elem, nil
}

// splitNameAndPredicates splits "name[a=b][c=d]" into "name" and the
// list of bracket-enclosed predicate bodies ["a=b", "c=d"].
func splitNameAndPredicates(seg string) (string, []string, error) {
	i := strings.IndexByte(seg, '[')
	if i < 0 {
		return unescape(seg), nil, nil
	}
	name := unescape(seg[:i])
	var preds []string
	rest := seg[i:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("gnmi: path element %q has trailing characters after ']'", seg)
		}
		depth := 0
		j := 0
		for ; j < len(rest); j++ {
			switch rest[j] {
			case '\\':
				j++
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					goto found
				}
			}
		}
		return "", nil, fmt.Errorf("gnmi: path element %q has unbalanced brackets", seg)
	found:
		preds = append(preds, rest[1:j])
		rest = rest[j+1:]
	}
	return name, preds, nil
}

func splitPredicate(pred string) (string, string, error) {
	i := strings.IndexByte(pred, '=')
	if i < 0 {
		return "", "", fmt.Errorf("gnmi: predicate %q is missing '='", pred)
	}
	return unescape(pred[:i]), unescape(pred[i+1:]), nil
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// PathToString renders a *gnmipb.Path back into its string form, the
// inverse of ParsePath on the subset of paths it can produce.
func PathToString(p *gnmipb.Path) string {
	var b strings.Builder
	if p.GetOrigin() != "" {
		b.WriteString(p.GetOrigin())
		b.WriteByte(':')
	}
	for _, elem := range p.GetElem() {
		b.WriteByte('/')
		b.WriteString(escape(elem.GetName()))
		for _, k := range sortedKeys(elem.GetKey()) {
			fmt.Fprintf(&b, "[%s=%s]", escape(k), escape(elem.GetKey()[k]))
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `/`, `\/`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
