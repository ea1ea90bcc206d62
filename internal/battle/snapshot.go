package battle

type Side int

const (
	SideSelf     Side = 0
	SideOpponent Side = 1
)

func (s Side) String() string {
	if s == SideSelf {
		return "self"
	}
	return "opponent"
}

type CombatantRecord struct {
	Name    string
	Health  float64
	Fainted bool
}

// NewCombatant clamps health into [0,1]. A fainted combatant always has zero health.
func NewCombatant(name string, health float64, fainted bool) CombatantRecord {
	switch {
	case fainted || health < 0:
		health = 0
	case health > 1:
		health = 1
	}
	return CombatantRecord{Name: name, Health: health, Fainted: fainted}
}

// Snapshot is one poll's view of both sides. It is never mutated after
// NewSnapshot returns.
type Snapshot struct {
	teams   [2][]CombatantRecord
	primary [2]string
}

func NewSnapshot(self, opponent []CombatantRecord, primary [2]string) Snapshot {
	var s Snapshot
	s.teams[SideSelf] = append([]CombatantRecord(nil), self...)
	s.teams[SideOpponent] = append([]CombatantRecord(nil), opponent...)
	s.primary = primary
	return s
}

func (s Snapshot) Team(side Side) []CombatantRecord {
	return append([]CombatantRecord(nil), s.teams[side]...)
}

func (s Snapshot) PrimaryName(side Side) (string, bool) {
	return s.primary[side], s.primary[side] != ""
}

// Primary returns the record of the side's active combatant.
func (s Snapshot) Primary(side Side) (CombatantRecord, bool) {
	name, ok := s.PrimaryName(side)
	if !ok {
		return CombatantRecord{}, false
	}
	for _, c := range s.teams[side] {
		if c.Name == name {
			return c, true
		}
	}
	return CombatantRecord{}, false
}

// Health of the side's active combatant, or 0 when nothing is active.
func (s Snapshot) Health(side Side) float64 {
	c, ok := s.Primary(side)
	if !ok {
		return 0
	}
	return c.Health
}

// Remaining counts combatants on a side that have not fainted.
func (s Snapshot) Remaining(side Side) int {
	n := 0
	for _, c := range s.teams[side] {
		if !c.Fainted {
			n++
		}
	}
	return n
}
