package entity

import (
	"math/big"

	"github.com/finsy-project/finsy-go/internal/codec"
	"github.com/finsy-project/finsy-go/internal/p4info"
	configv1 "github.com/p4lang/p4runtime/go/p4/config/v1"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// MatchKind tags which oneof arm a MatchValue carries.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchLPM
	MatchTernary
	MatchRange
	MatchOptional
)

// MatchValue is a user-constructed match field value, prior to wildcard
// omission and wire encoding. Which fields are meaningful depends on
// Kind.
type MatchValue struct {
	Kind MatchKind

	Exact *big.Int

	LPMValue  *big.Int
	LPMPrefix int

	TernaryValue *big.Int
	TernaryMask  *big.Int

	RangeLow  *big.Int
	RangeHigh *big.Int

	OptionalValue *big.Int
}

// matchFieldToWire encodes a single named match value into a wire
// FieldMatch, or returns (nil, nil) when the field is a wildcard and
// must be omitted entirely (spec invariant 4).
func matchFieldToWire(mf *configv1.MatchField, v MatchValue) (*p4v1.FieldMatch, error) {
	bw := int(mf.GetBitwidth())
	switch mf.GetMatchType() {
	case configv1.MatchField_EXACT:
		b, err := codec.EncodeUint(v.Exact, bw)
		if err != nil {
			return nil, err
		}
		return &p4v1.FieldMatch{
			FieldId:         mf.GetId(),
			FieldMatchType:  &p4v1.FieldMatch_Exact_{Exact: &p4v1.FieldMatch_Exact{Value: b}},
		}, nil
	case configv1.MatchField_LPM:
		lpm, err := codec.EncodeLPM(v.LPMValue, v.LPMPrefix, bw)
		if err != nil {
			return nil, err
		}
		if lpm.Wildcard {
			return nil, nil
		}
		return &p4v1.FieldMatch{
			FieldId: mf.GetId(),
			FieldMatchType: &p4v1.FieldMatch_Lpm{Lpm: &p4v1.FieldMatch_LPM{
				Value: lpm.Value, PrefixLen: int32(lpm.Prefix),
			}},
		}, nil
	case configv1.MatchField_TERNARY:
		t, err := codec.EncodeTernary(v.TernaryValue, v.TernaryMask, bw)
		if err != nil {
			return nil, err
		}
		if t.Wildcard {
			return nil, nil
		}
		return &p4v1.FieldMatch{
			FieldId: mf.GetId(),
			FieldMatchType: &p4v1.FieldMatch_Ternary_{Ternary: &p4v1.FieldMatch_Ternary{
				Value: t.Value, Mask: t.Mask,
			}},
		}, nil
	case configv1.MatchField_RANGE:
		r, err := codec.EncodeRange(v.RangeLow, v.RangeHigh, bw)
		if err != nil {
			return nil, err
		}
		if r.Wildcard {
			return nil, nil
		}
		return &p4v1.FieldMatch{
			FieldId: mf.GetId(),
			FieldMatchType: &p4v1.FieldMatch_Range_{Range: &p4v1.FieldMatch_Range{
				Low: r.Low, High: r.High,
			}},
		}, nil
	case configv1.MatchField_OPTIONAL:
		if v.OptionalValue == nil {
			return nil, nil
		}
		b, err := codec.EncodeUint(v.OptionalValue, bw)
		if err != nil {
			return nil, err
		}
		return &p4v1.FieldMatch{
			FieldId: mf.GetId(),
			FieldMatchType: &p4v1.FieldMatch_Optional_{Optional: &p4v1.FieldMatch_Optional{
				Value: b,
			}},
		}, nil
	default:
		return nil, &ConversionError{Entity: "match_field", Reason: "unsupported match type"}
	}
}

// matchFieldsToWire converts every non-wildcard named match in matches,
// in the table's declared field order (spec §3).
func matchFieldsToWire(t *configv1.Table, matches map[string]MatchValue) ([]*p4v1.FieldMatch, error) {
	var out []*p4v1.FieldMatch
	for _, mf := range t.GetMatchFields() {
		v, ok := matches[mf.GetName()]
		if !ok {
			continue
		}
		fm, err := matchFieldToWire(mf, v)
		if err != nil {
			return nil, err
		}
		if fm != nil {
			out = append(out, fm)
		}
	}
	return out, nil
}

// matchFieldsFromWire is the inverse: wire FieldMatch entries, absent
// entries implying a wildcard, converted back to named MatchValue.
func matchFieldsFromWire(t *configv1.Table, wire []*p4v1.FieldMatch) (map[string]MatchValue, error) {
	byID := map[uint32]*configv1.MatchField{}
	for _, mf := range t.GetMatchFields() {
		byID[mf.GetId()] = mf
	}
	out := map[string]MatchValue{}
	for _, fm := range wire {
		mf, ok := byID[fm.GetFieldId()]
		if !ok {
			return nil, &p4info.UnknownError{Kind: "match_field", Key: uintKey(fm.GetFieldId())}
		}
		bw := int(mf.GetBitwidth())
		switch arm := fm.GetFieldMatchType().(type) {
		case *p4v1.FieldMatch_Exact_:
			v, err := codec.DecodeUint(arm.Exact.GetValue(), bw)
			if err != nil {
				return nil, err
			}
			out[mf.GetName()] = MatchValue{Kind: MatchExact, Exact: v}
		case *p4v1.FieldMatch_Lpm:
			v, err := codec.DecodeUint(arm.Lpm.GetValue(), bw)
			if err != nil {
				return nil, err
			}
			out[mf.GetName()] = MatchValue{Kind: MatchLPM, LPMValue: v, LPMPrefix: int(arm.Lpm.GetPrefixLen())}
		case *p4v1.FieldMatch_Ternary_:
			v, err := codec.DecodeUint(arm.Ternary.GetValue(), bw)
			if err != nil {
				return nil, err
			}
			m, err := codec.DecodeUint(arm.Ternary.GetMask(), bw)
			if err != nil {
				return nil, err
			}
			out[mf.GetName()] = MatchValue{Kind: MatchTernary, TernaryValue: v, TernaryMask: m}
		case *p4v1.FieldMatch_Range_:
			lo, err := codec.DecodeUint(arm.Range.GetLow(), bw)
			if err != nil {
				return nil, err
			}
			hi, err := codec.DecodeUint(arm.Range.GetHigh(), bw)
			if err != nil {
				return nil, err
			}
			out[mf.GetName()] = MatchValue{Kind: MatchRange, RangeLow: lo, RangeHigh: hi}
		case *p4v1.FieldMatch_Optional_:
			v, err := codec.DecodeUint(arm.Optional.GetValue(), bw)
			if err != nil {
				return nil, err
			}
			out[mf.GetName()] = MatchValue{Kind: MatchOptional, OptionalValue: v}
		default:
			return nil, &ConversionError{Entity: "match_field", Reason: "unknown wire oneof arm"}
		}
	}
	return out, nil
}

func uintKey(id uint32) string {
	return big.NewInt(int64(id)).String()
}
