package entity

import (
	"math/big"

	"github.com/finsy-project/finsy-go/internal/codec"
	"github.com/finsy-project/finsy-go/internal/p4info"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// ActionProfileMember is a single weighted action, installed once and
// referenced by id from one or more groups or table entries.
type ActionProfileMember struct {
	ProfileName string
	MemberID    uint32
	ActionName  string
	Params      map[string]*big.Int
}

func (m ActionProfileMember) ToWire(schema *p4info.Schema) (*p4v1.ActionProfileMember, error) {
	profile, err := schema.LookupActionProfile(m.ProfileName)
	if err != nil {
		return nil, err
	}
	act, err := schema.LookupAction(m.ActionName)
	if err != nil {
		return nil, err
	}
	var params []*p4v1.Action_Param
	for _, p := range act.GetParams() {
		v, ok := m.Params[p.GetName()]
		if !ok {
			return nil, &ConversionError{Entity: "action_profile_member", Reason: "missing param " + p.GetName()}
		}
		b, err := codec.EncodeUint(v, int(p.GetBitwidth()))
		if err != nil {
			return nil, err
		}
		params = append(params, &p4v1.Action_Param{ParamId: p.GetId(), Value: b})
	}
	return &p4v1.ActionProfileMember{
		ActionProfileId: profile.GetPreamble().GetId(),
		MemberId:        m.MemberID,
		Action:          &p4v1.Action{ActionId: act.GetPreamble().GetId(), Params: params},
	}, nil
}

func ActionProfileMemberFromWire(schema *p4info.Schema, wire *p4v1.ActionProfileMember) (ActionProfileMember, error) {
	profile, err := schema.ActionProfile(wire.GetActionProfileId())
	if err != nil {
		return ActionProfileMember{}, err
	}
	act, err := schema.Action(wire.GetAction().GetActionId())
	if err != nil {
		return ActionProfileMember{}, err
	}
	params := map[string]*big.Int{}
	for _, p := range wire.GetAction().GetParams() {
		for _, ap := range act.GetParams() {
			if ap.GetId() == p.GetParamId() {
				v, err := codec.DecodeUint(p.GetValue(), int(ap.GetBitwidth()))
				if err != nil {
					return ActionProfileMember{}, err
				}
				params[ap.GetName()] = v
				break
			}
		}
	}
	return ActionProfileMember{
		ProfileName: profile.GetPreamble().GetName(),
		MemberID:    wire.GetMemberId(),
		ActionName:  act.GetPreamble().GetName(),
		Params:      params,
	}, nil
}

// ActionProfileGroupMember is one weighted, watch-portable member
// reference within a group.
type ActionProfileGroupMember struct {
	MemberID   uint32
	Weight     int32
	WatchPort  []byte
}

// ActionProfileGroup selects among its members by weighted hash; used
// by tables with with_selector semantics.
type ActionProfileGroup struct {
	ProfileName string
	GroupID     uint32
	Members     []ActionProfileGroupMember
	MaxSize     int32
}

func (g ActionProfileGroup) ToWire(schema *p4info.Schema) (*p4v1.ActionProfileGroup, error) {
	profile, err := schema.LookupActionProfile(g.ProfileName)
	if err != nil {
		return nil, err
	}
	var members []*p4v1.ActionProfileGroup_Member
	for _, m := range g.Members {
		members = append(members, &p4v1.ActionProfileGroup_Member{
			MemberId:  m.MemberID,
			Weight:    m.Weight,
			WatchPort: m.WatchPort,
		})
	}
	return &p4v1.ActionProfileGroup{
		ActionProfileId: profile.GetPreamble().GetId(),
		GroupId:         g.GroupID,
		Members:         members,
		MaxSize:         g.MaxSize,
	}, nil
}

func ActionProfileGroupFromWire(schema *p4info.Schema, wire *p4v1.ActionProfileGroup) (ActionProfileGroup, error) {
	profile, err := schema.ActionProfile(wire.GetActionProfileId())
	if err != nil {
		return ActionProfileGroup{}, err
	}
	var members []ActionProfileGroupMember
	for _, m := range wire.GetMembers() {
		members = append(members, ActionProfileGroupMember{
			MemberID:  m.GetMemberId(),
			Weight:    m.GetWeight(),
			WatchPort: m.GetWatchPort(),
		})
	}
	return ActionProfileGroup{
		ProfileName: profile.GetPreamble().GetName(),
		GroupID:     wire.GetGroupId(),
		Members:     members,
		MaxSize:     wire.GetMaxSize(),
	}, nil
}
