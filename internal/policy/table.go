// Package policy holds battle.Policy implementations that need no trained
// model: a weighted table read from YAML and a human at the terminal.
package policy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/showdown-bot/internal/battle"
)

var ErrEmptyTable = errors.New("policy table has no actions")
var ErrBadWeight = errors.New("policy weight out of range")

// TableFile is the on-disk form of a Table.
//
//	name: lopunny-ou
//	seed: 7
//	noise: 0.1
//	low_health: 0.3
//	switch_bias: 1.5
//	actions:
//	  - {action: move fakeout, weight: 4}
//	  - {action: switch Gyarados, weight: 1}
type TableFile struct {
	Name       string         `yaml:"name"`
	Seed       int64          `yaml:"seed"`
	Noise      float64        `yaml:"noise"`
	LowHealth  float64        `yaml:"low_health"`
	SwitchBias float64        `yaml:"switch_bias"`
	Actions    []ActionWeight `yaml:"actions"`
}

type ActionWeight struct {
	Action string  `yaml:"action"`
	Weight float64 `yaml:"weight"`
}

type entry struct {
	action battle.Action
	weight float64
}

// Table ranks a fixed action vocabulary by weight. When the own active
// combatant is below LowHealth, switch weights are scaled by 1+SwitchBias.
// Noise perturbs every weight by up to ±Noise of itself.
type Table struct {
	name       string
	entries    []entry
	noise      float64
	lowHealth  float64
	switchBias float64

	mu  sync.Mutex
	rng *rand.Rand
}

func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load policy table: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("load policy table %s: %w", path, err)
	}
	return t, nil
}

func ParseTable(data []byte) (*Table, error) {
	var f TableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return NewTable(f)
}

func NewTable(f TableFile) (*Table, error) {
	if len(f.Actions) == 0 {
		return nil, ErrEmptyTable
	}
	if f.Noise < 0 || f.Noise > 1 {
		return nil, fmt.Errorf("%w: noise %v", ErrBadWeight, f.Noise)
	}
	if f.SwitchBias < 0 {
		return nil, fmt.Errorf("%w: switch_bias %v", ErrBadWeight, f.SwitchBias)
	}

	t := &Table{
		name:       f.Name,
		noise:      f.Noise,
		lowHealth:  f.LowHealth,
		switchBias: f.SwitchBias,
		rng:        rand.New(rand.NewSource(f.Seed)),
	}
	if t.name == "" {
		t.name = "table"
	}
	seen := make(map[battle.Action]bool, len(f.Actions))
	for _, aw := range f.Actions {
		a, err := battle.ParseAction(aw.Action)
		if err != nil {
			return nil, err
		}
		if aw.Weight < 0 {
			return nil, fmt.Errorf("%w: %s has weight %v", ErrBadWeight, a, aw.Weight)
		}
		if seen[a] {
			return nil, fmt.Errorf("duplicate action %s", a)
		}
		seen[a] = true
		t.entries = append(t.entries, entry{action: a, weight: aw.Weight})
	}
	return t, nil
}

func (t *Table) Name() string { return t.name }

// Predict returns the whole vocabulary ordered by probability. Ties keep
// file order.
func (t *Table) Predict(ctx context.Context, snap battle.Snapshot) ([]battle.RankedCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	low := false
	if self, ok := snap.Primary(battle.SideSelf); ok {
		low = self.Health < t.lowHealth
	}

	weights := make([]float64, len(t.entries))
	var sum float64
	t.mu.Lock()
	for i, e := range t.entries {
		w := e.weight
		if low && e.action.IsSwitch() {
			w *= 1 + t.switchBias
		}
		if t.noise > 0 {
			w *= 1 + (t.rng.Float64()*2-1)*t.noise
		}
		weights[i] = w
		sum += w
	}
	t.mu.Unlock()

	out := make([]battle.RankedCandidate, len(t.entries))
	for i, e := range t.entries {
		p := 1 / float64(len(t.entries))
		if sum > 0 {
			p = weights[i] / sum
		}
		out[i] = battle.RankedCandidate{Probability: p, Action: e.action}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	return out, nil
}
