// Package p4info parses a P4Info pipeline schema and provides the
// immutable, safely-shareable name/id/alias lookups every other
// component (entity model, switch session) is built on (spec §4.2).
package p4info

import (
	"strconv"

	configv1 "github.com/p4lang/p4runtime/go/p4/config/v1"
)

// Schema is an immutable, concurrency-safe view over a single P4Info
// message. Construct once per pipeline install; a new pipeline means a
// new Schema (spec §3, "Pipeline").
type Schema struct {
	raw *configv1.P4Info

	tablesByID    map[uint32]*configv1.Table
	tablesByName  map[string]*configv1.Table
	actionsByID   map[uint32]*configv1.Action
	actionsByName map[string]*configv1.Action

	actionProfilesByID   map[uint32]*configv1.ActionProfile
	actionProfilesByName map[string]*configv1.ActionProfile
	countersByID         map[uint32]*configv1.Counter
	countersByName       map[string]*configv1.Counter
	directCountersByID   map[uint32]*configv1.DirectCounter
	directCountersByName map[string]*configv1.DirectCounter
	metersByID           map[uint32]*configv1.Meter
	metersByName         map[string]*configv1.Meter
	directMetersByID     map[uint32]*configv1.DirectMeter
	directMetersByName   map[string]*configv1.DirectMeter
	registersByID        map[uint32]*configv1.Register
	registersByName      map[string]*configv1.Register
	digestsByID          map[uint32]*configv1.Digest
	digestsByName        map[string]*configv1.Digest
	packetMetaByID       map[uint32]*configv1.ControllerPacketMetadata
	packetMetaByName     map[string]*configv1.ControllerPacketMetadata

	// tableActions is the set of action ids a table is allowed to use,
	// including any const default action.
	tableActions map[uint32]map[uint32]bool
}

// Build validates and indexes a raw P4Info message. It fails with
// InvalidError if any id is duplicated within its kind, any
// cross-reference fails to resolve, or any declared bitwidth is < 1
// (spec §3 invariants i-iii).
func Build(raw *configv1.P4Info) (*Schema, error) {
	s := &Schema{
		raw:                  raw,
		tablesByID:           map[uint32]*configv1.Table{},
		tablesByName:         map[string]*configv1.Table{},
		actionsByID:          map[uint32]*configv1.Action{},
		actionsByName:        map[string]*configv1.Action{},
		actionProfilesByID:   map[uint32]*configv1.ActionProfile{},
		actionProfilesByName: map[string]*configv1.ActionProfile{},
		countersByID:         map[uint32]*configv1.Counter{},
		countersByName:       map[string]*configv1.Counter{},
		directCountersByID:   map[uint32]*configv1.DirectCounter{},
		directCountersByName: map[string]*configv1.DirectCounter{},
		metersByID:           map[uint32]*configv1.Meter{},
		metersByName:         map[string]*configv1.Meter{},
		directMetersByID:     map[uint32]*configv1.DirectMeter{},
		directMetersByName:   map[string]*configv1.DirectMeter{},
		registersByID:        map[uint32]*configv1.Register{},
		registersByName:      map[string]*configv1.Register{},
		digestsByID:          map[uint32]*configv1.Digest{},
		digestsByName:        map[string]*configv1.Digest{},
		packetMetaByID:       map[uint32]*configv1.ControllerPacketMetadata{},
		packetMetaByName:     map[string]*configv1.ControllerPacketMetadata{},
		tableActions:         map[uint32]map[uint32]bool{},
	}

	for _, a := range raw.GetActions() {
		if err := indexPreamble(s.actionsByID, s.actionsByName, a.GetPreamble(), a, "action"); err != nil {
			return nil, err
		}
		for _, p := range a.GetParams() {
			if p.GetBitwidth() < 1 {
				return nil, &InvalidError{Reason: "action " + a.GetPreamble().GetName() + " param bitwidth < 1"}
			}
		}
	}

	for _, t := range raw.GetTables() {
		if err := indexPreamble(s.tablesByID, s.tablesByName, t.GetPreamble(), t, "table"); err != nil {
			return nil, err
		}
		allowed := map[uint32]bool{}
		for _, mf := range t.GetMatchFields() {
			if mf.GetBitwidth() < 1 {
				return nil, &InvalidError{Reason: "table " + t.GetPreamble().GetName() + " match field bitwidth < 1"}
			}
		}
		for _, ar := range t.GetActionRefs() {
			if _, ok := s.actionsByID[ar.GetId()]; !ok {
				return nil, &InvalidError{Reason: "table " + t.GetPreamble().GetName() + " references unknown action id " + strconv.Itoa(int(ar.GetId()))}
			}
			allowed[ar.GetId()] = true
		}
		if id := t.GetConstDefaultActionId(); id != 0 {
			if _, ok := s.actionsByID[id]; !ok {
				return nil, &InvalidError{Reason: "table " + t.GetPreamble().GetName() + " const default action unresolved"}
			}
			allowed[id] = true
		}
		s.tableActions[t.GetPreamble().GetId()] = allowed
	}

	for _, ap := range raw.GetActionProfiles() {
		if err := indexPreamble(s.actionProfilesByID, s.actionProfilesByName, ap.GetPreamble(), ap, "action_profile"); err != nil {
			return nil, err
		}
		for _, tid := range ap.GetTableIds() {
			if _, ok := s.tablesByID[tid]; !ok {
				return nil, &InvalidError{Reason: "action_profile " + ap.GetPreamble().GetName() + " references unknown table id"}
			}
		}
	}
	for _, c := range raw.GetCounters() {
		if err := indexPreamble(s.countersByID, s.countersByName, c.GetPreamble(), c, "counter"); err != nil {
			return nil, err
		}
	}
	for _, c := range raw.GetDirectCounters() {
		if err := indexPreamble(s.directCountersByID, s.directCountersByName, c.GetPreamble(), c, "direct_counter"); err != nil {
			return nil, err
		}
		if _, ok := s.tablesByID[c.GetDirectTableId()]; !ok {
			return nil, &InvalidError{Reason: "direct_counter " + c.GetPreamble().GetName() + " references unknown table id"}
		}
	}
	for _, m := range raw.GetMeters() {
		if err := indexPreamble(s.metersByID, s.metersByName, m.GetPreamble(), m, "meter"); err != nil {
			return nil, err
		}
	}
	for _, m := range raw.GetDirectMeters() {
		if err := indexPreamble(s.directMetersByID, s.directMetersByName, m.GetPreamble(), m, "direct_meter"); err != nil {
			return nil, err
		}
		if _, ok := s.tablesByID[m.GetDirectTableId()]; !ok {
			return nil, &InvalidError{Reason: "direct_meter " + m.GetPreamble().GetName() + " references unknown table id"}
		}
	}
	for _, r := range raw.GetRegisters() {
		if err := indexPreamble(s.registersByID, s.registersByName, r.GetPreamble(), r, "register"); err != nil {
			return nil, err
		}
	}
	for _, d := range raw.GetDigests() {
		if err := indexPreamble(s.digestsByID, s.digestsByName, d.GetPreamble(), d, "digest"); err != nil {
			return nil, err
		}
	}
	for _, pm := range raw.GetControllerPacketMetadata() {
		if err := indexPreamble(s.packetMetaByID, s.packetMetaByName, pm.GetPreamble(), pm, "controller_packet_metadata"); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// indexPreamble inserts obj into both maps keyed by id and by name/alias,
// failing with InvalidError on a duplicate id (spec §3 invariant i).
func indexPreamble[T any](byID map[uint32]T, byName map[string]T, p *configv1.Preamble, obj T, kind string) error {
	if p == nil {
		return &InvalidError{Reason: kind + " missing preamble"}
	}
	if _, dup := byID[p.GetId()]; dup {
		return &InvalidError{Reason: kind + " duplicate id " + strconv.Itoa(int(p.GetId()))}
	}
	byID[p.GetId()] = obj
	byName[p.GetName()] = obj
	if alias := p.GetAlias(); alias != "" {
		if _, dup := byName[alias]; dup && alias != p.GetName() {
			return &InvalidError{Reason: kind + " duplicate alias " + alias}
		}
		byName[alias] = obj
	}
	return nil
}

// P4Info returns the raw underlying message, for callers that need
// fields this package doesn't expose a lookup for.
func (s *Schema) P4Info() *configv1.P4Info { return s.raw }

// Table resolves a table by numeric id.
func (s *Schema) Table(id uint32) (*configv1.Table, error) {
	t, ok := s.tablesByID[id]
	if !ok {
		return nil, &UnknownError{Kind: "table", Key: strconv.Itoa(int(id))}
	}
	return t, nil
}

// TableByName resolves a table by name or alias.
func (s *Schema) TableByName(name string) (*configv1.Table, error) {
	t, ok := s.tablesByName[name]
	if !ok {
		return nil, &UnknownError{Kind: "table", Key: name}
	}
	return t, nil
}

// LookupTable resolves either a numeric id or a name/alias, matching
// spec §4.2's lookup_table(name_or_id).
func (s *Schema) LookupTable(nameOrID string) (*configv1.Table, error) {
	if id, err := strconv.ParseUint(nameOrID, 10, 32); err == nil {
		return s.Table(uint32(id))
	}
	return s.TableByName(nameOrID)
}

// Action resolves an action by numeric id.
func (s *Schema) Action(id uint32) (*configv1.Action, error) {
	a, ok := s.actionsByID[id]
	if !ok {
		return nil, &UnknownError{Kind: "action", Key: strconv.Itoa(int(id))}
	}
	return a, nil
}

// ActionByName resolves an action by name or alias.
func (s *Schema) ActionByName(name string) (*configv1.Action, error) {
	a, ok := s.actionsByName[name]
	if !ok {
		return nil, &UnknownError{Kind: "action", Key: name}
	}
	return a, nil
}

// LookupAction resolves either a numeric id or a name/alias.
func (s *Schema) LookupAction(nameOrID string) (*configv1.Action, error) {
	if id, err := strconv.ParseUint(nameOrID, 10, 32); err == nil {
		return s.Action(uint32(id))
	}
	return s.ActionByName(nameOrID)
}

// TableAllowsAction reports whether actionID is a valid action (or the
// const default action) for tableID.
func (s *Schema) TableAllowsAction(tableID, actionID uint32) bool {
	return s.tableActions[tableID][actionID]
}

// MatchFields returns the table's match fields in declaration order,
// which is the order §3's "Match key" ordering relies on.
func (s *Schema) MatchFields(t *configv1.Table) []*configv1.MatchField {
	return t.GetMatchFields()
}

// ActionProfile resolves an action profile by numeric id.
func (s *Schema) ActionProfile(id uint32) (*configv1.ActionProfile, error) {
	ap, ok := s.actionProfilesByID[id]
	if !ok {
		return nil, &UnknownError{Kind: "action_profile", Key: strconv.Itoa(int(id))}
	}
	return ap, nil
}

// ActionProfileByName resolves an action profile by name or alias.
func (s *Schema) ActionProfileByName(name string) (*configv1.ActionProfile, error) {
	ap, ok := s.actionProfilesByName[name]
	if !ok {
		return nil, &UnknownError{Kind: "action_profile", Key: name}
	}
	return ap, nil
}

// LookupActionProfile resolves either a numeric id or a name/alias.
func (s *Schema) LookupActionProfile(nameOrID string) (*configv1.ActionProfile, error) {
	if id, err := strconv.ParseUint(nameOrID, 10, 32); err == nil {
		return s.ActionProfile(uint32(id))
	}
	return s.ActionProfileByName(nameOrID)
}

func (s *Schema) Counter(id uint32) (*configv1.Counter, error) {
	c, ok := s.countersByID[id]
	if !ok {
		return nil, &UnknownError{Kind: "counter", Key: strconv.Itoa(int(id))}
	}
	return c, nil
}

func (s *Schema) DirectCounter(id uint32) (*configv1.DirectCounter, error) {
	c, ok := s.directCountersByID[id]
	if !ok {
		return nil, &UnknownError{Kind: "direct_counter", Key: strconv.Itoa(int(id))}
	}
	return c, nil
}

// LookupCounter resolves a standalone counter by numeric id or name/alias.
func (s *Schema) LookupCounter(nameOrID string) (*configv1.Counter, error) {
	if id, err := strconv.ParseUint(nameOrID, 10, 32); err == nil {
		return s.Counter(uint32(id))
	}
	c, ok := s.countersByName[nameOrID]
	if !ok {
		return nil, &UnknownError{Kind: "counter", Key: nameOrID}
	}
	return c, nil
}

func (s *Schema) Meter(id uint32) (*configv1.Meter, error) {
	m, ok := s.metersByID[id]
	if !ok {
		return nil, &UnknownError{Kind: "meter", Key: strconv.Itoa(int(id))}
	}
	return m, nil
}

// LookupMeter resolves a standalone meter by numeric id or name/alias.
func (s *Schema) LookupMeter(nameOrID string) (*configv1.Meter, error) {
	if id, err := strconv.ParseUint(nameOrID, 10, 32); err == nil {
		return s.Meter(uint32(id))
	}
	m, ok := s.metersByName[nameOrID]
	if !ok {
		return nil, &UnknownError{Kind: "meter", Key: nameOrID}
	}
	return m, nil
}

func (s *Schema) DirectMeter(id uint32) (*configv1.DirectMeter, error) {
	m, ok := s.directMetersByID[id]
	if !ok {
		return nil, &UnknownError{Kind: "direct_meter", Key: strconv.Itoa(int(id))}
	}
	return m, nil
}

func (s *Schema) Register(id uint32) (*configv1.Register, error) {
	r, ok := s.registersByID[id]
	if !ok {
		return nil, &UnknownError{Kind: "register", Key: strconv.Itoa(int(id))}
	}
	return r, nil
}

// LookupRegister resolves a register by numeric id or name/alias.
func (s *Schema) LookupRegister(nameOrID string) (*configv1.Register, error) {
	if id, err := strconv.ParseUint(nameOrID, 10, 32); err == nil {
		return s.Register(uint32(id))
	}
	r, ok := s.registersByName[nameOrID]
	if !ok {
		return nil, &UnknownError{Kind: "register", Key: nameOrID}
	}
	return r, nil
}

func (s *Schema) Digest(id uint32) (*configv1.Digest, error) {
	d, ok := s.digestsByID[id]
	if !ok {
		return nil, &UnknownError{Kind: "digest", Key: strconv.Itoa(int(id))}
	}
	return d, nil
}

func (s *Schema) DigestByName(name string) (*configv1.Digest, error) {
	d, ok := s.digestsByName[name]
	if !ok {
		return nil, &UnknownError{Kind: "digest", Key: name}
	}
	return d, nil
}

// LookupDigest resolves a digest by numeric id or name/alias.
func (s *Schema) LookupDigest(nameOrID string) (*configv1.Digest, error) {
	if id, err := strconv.ParseUint(nameOrID, 10, 32); err == nil {
		return s.Digest(uint32(id))
	}
	return s.DigestByName(nameOrID)
}

// ControllerPacketMetadata resolves the named controller header (by
// convention "packet_in" or "packet_out") used to encode PacketIn/
// PacketOut metadata fields (spec §4.3).
func (s *Schema) ControllerPacketMetadata(name string) (*configv1.ControllerPacketMetadata, error) {
	pm, ok := s.packetMetaByName[name]
	if !ok {
		return nil, &UnknownError{Kind: "controller_packet_metadata", Key: name}
	}
	return pm, nil
}

// TableHasPriorityField reports whether t has any ternary/range/optional
// match field, meaning a priority is required on entries (spec §3).
func TableHasPriorityField(t *configv1.Table) bool {
	for _, mf := range t.GetMatchFields() {
		switch mf.GetMatchType() {
		case configv1.MatchField_TERNARY, configv1.MatchField_RANGE, configv1.MatchField_OPTIONAL:
			return true
		}
	}
	return false
}
