package entity

import (
	"math/big"

	"github.com/finsy-project/finsy-go/internal/codec"
	"github.com/finsy-project/finsy-go/internal/p4info"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// TableAction is the action arm of a table entry: a direct action call
// with parameters, or an indirect reference into an action profile
// member or group (spec §4.3).
type TableAction struct {
	ActionName string
	Params     map[string]*big.Int

	MemberID *uint32
	GroupID  *uint32
}

func (a TableAction) isDirect() bool    { return a.ActionName != "" }
func (a TableAction) isIndirect() bool  { return a.MemberID != nil || a.GroupID != nil }

func (a TableAction) toWire(schema *p4info.Schema) (*p4v1.TableAction, error) {
	switch {
	case a.isDirect() && !a.isIndirect():
		act, err := schema.LookupAction(a.ActionName)
		if err != nil {
			return nil, err
		}
		var params []*p4v1.Action_Param
		for _, p := range act.GetParams() {
			v, ok := a.Params[p.GetName()]
			if !ok {
				return nil, &ConversionError{Entity: "table_action", Reason: "missing param " + p.GetName()}
			}
			b, err := codec.EncodeUint(v, int(p.GetBitwidth()))
			if err != nil {
				return nil, err
			}
			params = append(params, &p4v1.Action_Param{ParamId: p.GetId(), Value: b})
		}
		return &p4v1.TableAction{
			Type: &p4v1.TableAction_Action{Action: &p4v1.Action{ActionId: act.GetPreamble().GetId(), Params: params}},
		}, nil
	case a.MemberID != nil && a.GroupID == nil:
		return &p4v1.TableAction{Type: &p4v1.TableAction_ActionProfileMemberId{ActionProfileMemberId: *a.MemberID}}, nil
	case a.GroupID != nil && a.MemberID == nil:
		return &p4v1.TableAction{Type: &p4v1.TableAction_ActionProfileGroupId{ActionProfileGroupId: *a.GroupID}}, nil
	default:
		return nil, &ConversionError{Entity: "table_action", Reason: "exactly one of direct action, member id, group id must be set"}
	}
}

func tableActionFromWire(schema *p4info.Schema, wire *p4v1.TableAction) (TableAction, error) {
	switch arm := wire.GetType().(type) {
	case *p4v1.TableAction_Action:
		act, err := schema.Action(arm.Action.GetActionId())
		if err != nil {
			return TableAction{}, err
		}
		byID := map[uint32]string{}
		for _, p := range act.GetParams() {
			byID[p.GetId()] = p.GetName()
		}
		params := map[string]*big.Int{}
		for _, p := range arm.Action.GetParams() {
			name, ok := byID[p.GetParamId()]
			if !ok {
				return TableAction{}, &p4info.UnknownError{Kind: "action_param", Key: uintKey(p.GetParamId())}
			}
			// Bitwidth lookup requires scanning params; trivial set, linear ok.
			var bw int
			for _, ap := range act.GetParams() {
				if ap.GetId() == p.GetParamId() {
					bw = int(ap.GetBitwidth())
					break
				}
			}
			v, err := codec.DecodeUint(p.GetValue(), bw)
			if err != nil {
				return TableAction{}, err
			}
			params[name] = v
		}
		return TableAction{ActionName: act.GetPreamble().GetName(), Params: params}, nil
	case *p4v1.TableAction_ActionProfileMemberId:
		id := arm.ActionProfileMemberId
		return TableAction{MemberID: &id}, nil
	case *p4v1.TableAction_ActionProfileGroupId:
		id := arm.ActionProfileGroupId
		return TableAction{GroupID: &id}, nil
	default:
		return TableAction{}, &ConversionError{Entity: "table_action", Reason: "unsupported wire oneof arm"}
	}
}

// TableEntry is a user-constructed entry for a single match-action
// table, keyed by table name and match-field name for readability.
type TableEntry struct {
	TableName       string
	Matches         map[string]MatchValue
	Action          TableAction
	Priority        int32
	IsDefaultAction bool
	IdleTimeoutNS   int64
}

// ToWire converts the entry into the wire TableEntry, validating the
// action against the table's allowed action set and the priority
// requirement for tables with a ternary/range/optional field (spec §8
// boundary behaviors).
func (e TableEntry) ToWire(schema *p4info.Schema) (*p4v1.TableEntry, error) {
	t, err := schema.LookupTable(e.TableName)
	if err != nil {
		return nil, err
	}
	if e.Action.isDirect() {
		act, err := schema.LookupAction(e.Action.ActionName)
		if err != nil {
			return nil, err
		}
		if !schema.TableAllowsAction(t.GetPreamble().GetId(), act.GetPreamble().GetId()) {
			return nil, &ConversionError{Entity: "table_entry", Reason: "action " + e.Action.ActionName + " not valid for table " + e.TableName}
		}
	}
	if !p4info.TableHasPriorityField(t) && e.Priority != 0 {
		return nil, &ConversionError{Entity: "table_entry", Reason: "priority set on table with no ternary/range/optional field"}
	}
	if p4info.TableHasPriorityField(t) && e.Priority == 0 {
		return nil, &ConversionError{Entity: "table_entry", Reason: "priority required on table with a ternary/range/optional field"}
	}
	matches, err := matchFieldsToWire(t, e.Matches)
	if err != nil {
		return nil, err
	}
	action, err := e.Action.toWire(schema)
	if err != nil {
		return nil, err
	}
	return &p4v1.TableEntry{
		TableId:         t.GetPreamble().GetId(),
		Match:           matches,
		Action:          action,
		Priority:        e.Priority,
		IsDefaultAction: e.IsDefaultAction,
		IdleTimeoutNs:   e.IdleTimeoutNS,
	}, nil
}

// TableEntryFromWire is the inverse of ToWire.
func TableEntryFromWire(schema *p4info.Schema, wire *p4v1.TableEntry) (TableEntry, error) {
	t, err := schema.Table(wire.GetTableId())
	if err != nil {
		return TableEntry{}, err
	}
	matches, err := matchFieldsFromWire(t, wire.GetMatch())
	if err != nil {
		return TableEntry{}, err
	}
	action, err := tableActionFromWire(schema, wire.GetAction())
	if err != nil {
		return TableEntry{}, err
	}
	return TableEntry{
		TableName:       t.GetPreamble().GetName(),
		Matches:         matches,
		Action:          action,
		Priority:        wire.GetPriority(),
		IsDefaultAction: wire.GetIsDefaultAction(),
		IdleTimeoutNS:   wire.GetIdleTimeoutNs(),
	}, nil
}
