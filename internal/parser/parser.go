// Package parser turns combatant icon descriptors into battle records.
//
// Descriptors come from the title attribute of each team icon and take a
// handful of loosely-defined forms, for example:
//
//	Lopunny (active)
//	Bunny (Lopunny) (active)
//	Gyarados (42%|brn)
//	Fish (Gyarados) (fainted)
//	Fish (Gyarados)
//	Gyarados
//
// Shapes are tried in a fixed order and the first match wins. The last
// shape always matches.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

type Shape int

const (
	ShapeActiveNickname Shape = iota + 1
	ShapeActive
	ShapeNicknameHealth
	ShapeHealth
	ShapeNickname
	ShapeFallback
)

func (s Shape) String() string {
	switch s {
	case ShapeActiveNickname:
		return "active_nickname"
	case ShapeActive:
		return "active"
	case ShapeNicknameHealth:
		return "nickname_health"
	case ShapeHealth:
		return "health"
	case ShapeNickname:
		return "nickname"
	case ShapeFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Active shapes read health from the side's readout, not the descriptor.
func (s Shape) Active() bool { return s == ShapeActiveNickname || s == ShapeActive }

const tokenFainted = "fainted"

// Persistent conditions shown in place of a percentage. They say nothing
// about remaining health.
var conditions = map[string]bool{"tox": true, "brn": true, "slp": true, "par": true}

const healthToken = `(?P<health>.+?%(?:\|.+?)?|fainted|tox|brn|slp|par)`

type rule struct {
	shape Shape
	re    *regexp.Regexp
}

var cascade = []rule{
	{ShapeActiveNickname, regexp.MustCompile(`^.+\((?P<name>.+?)\) \(active\)$`)},
	{ShapeActive, regexp.MustCompile(`^(?P<name>.+) \(active\)$`)},
	{ShapeNicknameHealth, regexp.MustCompile(`^.+?\((?P<name>.+?)\) \(` + healthToken + `\)$`)},
	{ShapeHealth, regexp.MustCompile(`^(?P<name>.+?) \(` + healthToken + `\)$`)},
	{ShapeNickname, regexp.MustCompile(`^.+?\((?P<name>.+?)\)$`)},
}

// Result is one parsed descriptor. For active shapes Health is 1 until the
// caller fills it in from the readout.
type Result struct {
	Shape   Shape
	Name    string
	Health  float64
	Fainted bool
}

type Parser struct {
	log       *zap.Logger
	fallbacks atomic.Int64
}

func New(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// Fallbacks counts descriptors that matched no specific shape.
func (p *Parser) Fallbacks() int64 { return p.fallbacks.Load() }

func (p *Parser) Parse(desc string) Result {
	for _, r := range cascade {
		m := r.re.FindStringSubmatch(desc)
		if m == nil {
			continue
		}
		res := Result{Shape: r.shape, Name: m[r.re.SubexpIndex("name")], Health: 1}
		if i := r.re.SubexpIndex("health"); i > 0 {
			res.Health, res.Fainted = p.healthToken(m[i])
		}
		return res
	}

	p.fallbacks.Add(1)
	p.log.Warn("descriptor matched no shape, using it as the name",
		zap.String("descriptor", desc))
	return Result{Shape: ShapeFallback, Name: desc, Health: 1}
}

func (p *Parser) healthToken(tok string) (float64, bool) {
	if tok == tokenFainted {
		return 0, true
	}
	pct, _, _ := strings.Cut(tok, "|")
	if conditions[pct] {
		return 1, false
	}
	h, ok := ParsePercent(pct)
	if !ok {
		p.log.Warn("unreadable health token, assuming full health", zap.String("token", tok))
		return 1, false
	}
	return h, false
}

// ParsePercent reads the leading number before "%" as a fraction in [0,1].
func ParsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	v /= 100
	if v > 1 {
		v = 1
	}
	return v, true
}
