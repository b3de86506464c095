package entity

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/finsy-project/finsy-go/internal/p4info"
)

// FormatEntry renders a TableEntry as the compact human text format
// p4info §4.2 calls format_entry: "table: match1=v1, match2=v2/p =>
// action(param=v) priority=N". It is the inverse of ParseEntry.
func FormatEntry(e TableEntry) string {
	var b strings.Builder
	b.WriteString(e.TableName)
	b.WriteString(": ")

	names := make([]string, 0, len(e.Matches))
	for name := range e.Matches {
		names = append(names, name)
	}
	sortStrings(names)
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(formatMatchValue(e.Matches[name]))
	}

	b.WriteString(" => ")
	b.WriteString(formatAction(e.Action))

	if e.Priority != 0 {
		fmt.Fprintf(&b, " priority=%d", e.Priority)
	}
	if e.IsDefaultAction {
		b.WriteString(" default")
	}
	return b.String()
}

func formatMatchValue(v MatchValue) string {
	switch v.Kind {
	case MatchExact:
		return v.Exact.String()
	case MatchLPM:
		return fmt.Sprintf("%s/%d", v.LPMValue.String(), v.LPMPrefix)
	case MatchTernary:
		return fmt.Sprintf("%s&%s", v.TernaryValue.String(), v.TernaryMask.String())
	case MatchRange:
		return fmt.Sprintf("%s..%s", v.RangeLow.String(), v.RangeHigh.String())
	case MatchOptional:
		if v.OptionalValue == nil {
			return "*"
		}
		return v.OptionalValue.String()
	default:
		return "?"
	}
}

func formatAction(a TableAction) string {
	switch {
	case a.MemberID != nil:
		return fmt.Sprintf("member=%d", *a.MemberID)
	case a.GroupID != nil:
		return fmt.Sprintf("group=%d", *a.GroupID)
	case a.isDirect():
		names := make([]string, 0, len(a.Params))
		for name := range a.Params {
			names = append(names, name)
		}
		sortStrings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = name + "=" + a.Params[name].String()
		}
		return fmt.Sprintf("%s(%s)", a.ActionName, strings.Join(parts, ","))
	default:
		return "noop"
	}
}

// ParseEntry parses the text FormatEntry produces back into a
// TableEntry, resolving match field and action names against schema
// (p4info §4.2, parse_entry). It fails with p4info.UnknownError if a
// table, action, or field name does not resolve.
func ParseEntry(schema *p4info.Schema, s string) (TableEntry, error) {
	tableName, rest, ok := cutOnce(s, ":")
	if !ok {
		return TableEntry{}, &ConversionError{Entity: "table_entry", Reason: "missing ':' after table name"}
	}
	tableName = strings.TrimSpace(tableName)
	rest = strings.TrimSpace(rest)

	matchPart, rest, ok := cutOnce(rest, "=>")
	if !ok {
		return TableEntry{}, &ConversionError{Entity: "table_entry", Reason: "missing '=>' before action"}
	}

	actionPart := strings.TrimSpace(rest)
	priority := int32(0)
	isDefault := false
	if strings.HasSuffix(actionPart, " default") {
		isDefault = true
		actionPart = strings.TrimSpace(strings.TrimSuffix(actionPart, " default"))
	}
	if i := strings.Index(actionPart, " priority="); i >= 0 {
		numStr := strings.TrimSpace(actionPart[i+len(" priority="):])
		actionPart = strings.TrimSpace(actionPart[:i])
		n, err := strconv.ParseInt(numStr, 10, 32)
		if err != nil {
			return TableEntry{}, &ConversionError{Entity: "table_entry", Reason: "invalid priority: " + err.Error()}
		}
		priority = int32(n)
	}

	matches := map[string]MatchValue{}
	matchPart = strings.TrimSpace(matchPart)
	if matchPart != "" {
		for _, item := range strings.Split(matchPart, ",") {
			name, val, ok := cutOnce(item, "=")
			if !ok {
				return TableEntry{}, &ConversionError{Entity: "table_entry", Reason: "malformed match " + item}
			}
			name = strings.TrimSpace(name)
			mv, err := parseMatchValue(strings.TrimSpace(val))
			if err != nil {
				return TableEntry{}, err
			}
			matches[name] = mv
		}
	}

	action, err := parseAction(strings.TrimSpace(actionPart))
	if err != nil {
		return TableEntry{}, err
	}

	t, err := schema.LookupTable(tableName)
	if err != nil {
		return TableEntry{}, err
	}
	known := map[string]bool{}
	for _, mf := range t.GetMatchFields() {
		known[mf.GetName()] = true
	}
	for name := range matches {
		if !known[name] {
			return TableEntry{}, &p4info.UnknownError{Kind: "match_field", Key: name}
		}
	}
	if action.isDirect() {
		if _, err := schema.LookupAction(action.ActionName); err != nil {
			return TableEntry{}, err
		}
	}

	return TableEntry{
		TableName:       tableName,
		Matches:         matches,
		Action:          action,
		Priority:        priority,
		IsDefaultAction: isDefault,
	}, nil
}

func parseMatchValue(s string) (MatchValue, error) {
	switch {
	case s == "*":
		return MatchValue{Kind: MatchOptional, OptionalValue: nil}, nil
	case strings.Contains(s, "/"):
		valStr, prefixStr, _ := cutOnce(s, "/")
		v, ok := new(big.Int).SetString(valStr, 10)
		if !ok {
			return MatchValue{}, &ConversionError{Entity: "match_value", Reason: "invalid integer " + valStr}
		}
		prefix, err := strconv.Atoi(prefixStr)
		if err != nil {
			return MatchValue{}, &ConversionError{Entity: "match_value", Reason: "invalid prefix " + prefixStr}
		}
		return MatchValue{Kind: MatchLPM, LPMValue: v, LPMPrefix: prefix}, nil
	case strings.Contains(s, "&"):
		valStr, maskStr, _ := cutOnce(s, "&")
		v, ok := new(big.Int).SetString(valStr, 10)
		if !ok {
			return MatchValue{}, &ConversionError{Entity: "match_value", Reason: "invalid integer " + valStr}
		}
		m, ok := new(big.Int).SetString(maskStr, 10)
		if !ok {
			return MatchValue{}, &ConversionError{Entity: "match_value", Reason: "invalid mask " + maskStr}
		}
		return MatchValue{Kind: MatchTernary, TernaryValue: v, TernaryMask: m}, nil
	case strings.Contains(s, ".."):
		loStr, hiStr, _ := cutOnce(s, "..")
		lo, ok := new(big.Int).SetString(loStr, 10)
		if !ok {
			return MatchValue{}, &ConversionError{Entity: "match_value", Reason: "invalid integer " + loStr}
		}
		hi, ok := new(big.Int).SetString(hiStr, 10)
		if !ok {
			return MatchValue{}, &ConversionError{Entity: "match_value", Reason: "invalid integer " + hiStr}
		}
		return MatchValue{Kind: MatchRange, RangeLow: lo, RangeHigh: hi}, nil
	default:
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return MatchValue{}, &ConversionError{Entity: "match_value", Reason: "invalid integer " + s}
		}
		return MatchValue{Kind: MatchExact, Exact: v}, nil
	}
}

func parseAction(s string) (TableAction, error) {
	switch {
	case strings.HasPrefix(s, "member="):
		id, err := strconv.ParseUint(s[len("member="):], 10, 32)
		if err != nil {
			return TableAction{}, &ConversionError{Entity: "table_action", Reason: "invalid member id"}
		}
		v := uint32(id)
		return TableAction{MemberID: &v}, nil
	case strings.HasPrefix(s, "group="):
		id, err := strconv.ParseUint(s[len("group="):], 10, 32)
		if err != nil {
			return TableAction{}, &ConversionError{Entity: "table_action", Reason: "invalid group id"}
		}
		v := uint32(id)
		return TableAction{GroupID: &v}, nil
	case s == "noop":
		return TableAction{}, nil
	default:
		open := strings.IndexByte(s, '(')
		if open < 0 || !strings.HasSuffix(s, ")") {
			return TableAction{}, &ConversionError{Entity: "table_action", Reason: "malformed action " + s}
		}
		name := s[:open]
		body := s[open+1 : len(s)-1]
		params := map[string]*big.Int{}
		if body != "" {
			for _, item := range strings.Split(body, ",") {
				pname, pval, ok := cutOnce(item, "=")
				if !ok {
					return TableAction{}, &ConversionError{Entity: "table_action", Reason: "malformed param " + item}
				}
				v, ok := new(big.Int).SetString(strings.TrimSpace(pval), 10)
				if !ok {
					return TableAction{}, &ConversionError{Entity: "table_action", Reason: "invalid param value " + pval}
				}
				params[strings.TrimSpace(pname)] = v
			}
		}
		return TableAction{ActionName: name, Params: params}, nil
	}
}

// cutOnce is strings.Cut with the arguments finsy-go targets (go1.25
// has strings.Cut, but this keeps the call sites terse and ok=false on
// a missing separator explicit at each use).
func cutOnce(s, sep string) (before, after string, found bool) {
	return strings.Cut(s, sep)
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
