// Package alert keeps a small in-memory registry of threshold rules
// over live prices and pair z-scores.
package alert

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

type Kind string

const (
	// KindPrice fires on the last trade price of a single symbol.
	KindPrice Kind = "price"
	// KindZScore fires on the latest spread z-score of a pair.
	KindZScore Kind = "zscore"
)

type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

type Rule struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Symbol    string    `json:"symbol,omitempty"`
	Symbol2   string    `json:"symbol2,omitempty"`
	Direction Direction `json:"direction"`
	Threshold float64   `json:"threshold"`
	CreatedAt int64     `json:"created_at"`
}

// ParseRule decodes a posted rule body. gjson tolerates thresholds
// arriving as either JSON numbers or quoted strings, which the
// dashboard form does both of.
func ParseRule(body []byte) (Rule, error) {
	if !gjson.ValidBytes(body) {
		return Rule{}, fmt.Errorf("invalid json body")
	}
	doc := gjson.ParseBytes(body)

	rule := Rule{
		Kind:      Kind(strings.ToLower(doc.Get("kind").String())),
		Symbol:    strings.ToLower(strings.TrimSpace(doc.Get("symbol").String())),
		Symbol2:   strings.ToLower(strings.TrimSpace(doc.Get("symbol2").String())),
		Direction: Direction(strings.ToLower(doc.Get("direction").String())),
	}
	th := doc.Get("threshold")
	if !th.Exists() {
		return Rule{}, fmt.Errorf("threshold is required")
	}
	switch th.Type {
	case gjson.Number, gjson.String:
		rule.Threshold = th.Float()
	default:
		return Rule{}, fmt.Errorf("threshold must be a number")
	}

	switch rule.Kind {
	case KindPrice:
		if rule.Symbol == "" {
			return Rule{}, fmt.Errorf("price rule requires symbol")
		}
	case KindZScore:
		if rule.Symbol == "" || rule.Symbol2 == "" {
			return Rule{}, fmt.Errorf("zscore rule requires symbol and symbol2")
		}
	default:
		return Rule{}, fmt.Errorf("unknown rule kind %q", doc.Get("kind").String())
	}
	switch rule.Direction {
	case Above, Below:
	case "":
		rule.Direction = Above
	default:
		return Rule{}, fmt.Errorf("direction must be above or below")
	}
	return rule, nil
}

// Event is one rule firing against an observed value.
type Event struct {
	Rule    Rule    `json:"rule"`
	Value   float64 `json:"value"`
	FiredAt int64   `json:"fired_at"`
}

type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

func (r *Registry) Add(rule Rule) Rule {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt == 0 {
		rule.CreatedAt = time.Now().UnixMilli()
	}
	r.mu.Lock()
	r.rules[rule.ID] = rule
	r.mu.Unlock()
	return rule
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return false
	}
	delete(r.rules, id)
	return true
}

// Clear drops every rule and reports how many were removed.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.rules)
	r.rules = make(map[string]Rule)
	return n
}

func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out
}

// Observation is the current value a rule is checked against. Price
// rules match on Symbol alone, z-score rules on the ordered pair.
type Observation struct {
	Kind    Kind
	Symbol  string
	Symbol2 string
	Value   float64
}

// Evaluate is a pure read: it reports which rules fire for the given
// observations without mutating the registry.
func (r *Registry) Evaluate(obs []Observation) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now().UnixMilli()
	var events []Event
	for _, rule := range r.rules {
		for _, o := range obs {
			if o.Kind != rule.Kind || o.Symbol != rule.Symbol {
				continue
			}
			if rule.Kind == KindZScore && o.Symbol2 != rule.Symbol2 {
				continue
			}
			if fires(rule, o.Value) {
				events = append(events, Event{Rule: rule, Value: o.Value, FiredAt: now})
			}
		}
	}
	return events
}

func fires(rule Rule, value float64) bool {
	if rule.Direction == Below {
		return value < rule.Threshold
	}
	return value > rule.Threshold
}
