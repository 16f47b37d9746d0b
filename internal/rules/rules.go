// Package rules maps gesture signals to named actions and rate-limits the
// actions that are committed.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/mukha/internal/gesture"
)

// Rule validation errors.
var (
	ErrUnknownGesture = errors.New("unknown gesture")
	ErrUnknownAction  = errors.New("unknown action")
	ErrMissingParam   = errors.New("action requires a parameter")
	ErrDuplicate      = errors.New("a rule with this gesture and action already exists")
)

// Parameterized actions. Their committed name carries the parameter as a
// suffix, e.g. "type-hello".
const (
	ActionType     = "type"
	ActionReadText = "read-text"
)

// Actions lists every action a rule may name.
var Actions = []string{
	"click", "right-click", "middle-click",
	"scroll-up", "scroll-down",
	ActionType,
	"copy", "paste", "cut", "select-all", "undo", "save-file",
	"volume-up", "volume-down",
	"minimize-window", "maximize-window", "close-window",
	ActionReadText,
}

func knownAction(a string) bool {
	for _, known := range Actions {
		if known == a {
			return true
		}
	}
	return false
}

func parameterized(a string) bool {
	return a == ActionType || a == ActionReadText
}

// Rule binds a gesture signal to an action.
type Rule struct {
	ID      string `json:"id"`
	Gesture string `json:"gesture"`
	Action  string `json:"action"`
	Param   string `json:"param,omitempty"`
	Enabled bool   `json:"enabled"`
}

// Validate checks the gesture and action names.
func (r Rule) Validate() error {
	if !gesture.Known(r.Gesture) {
		return fmt.Errorf("%w: %q", ErrUnknownGesture, r.Gesture)
	}
	if !knownAction(r.Action) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, r.Action)
	}
	if parameterized(r.Action) && r.Param == "" {
		return fmt.Errorf("%w: %q", ErrMissingParam, r.Action)
	}
	return nil
}

// Condition returns the signal values the rule requires.
func (r Rule) Condition() map[string]bool {
	return map[string]bool{r.Gesture: true}
}

// ActionName returns the committed action name, including the parameter
// for parameterized actions.
func (r Rule) ActionName() string {
	if parameterized(r.Action) {
		return r.Action + "-" + r.Param
	}
	return r.Action
}

// SameAs reports whether two rules bind the same gesture to the same action.
// Typing rules only collide when they type the same text.
func (r Rule) SameAs(o Rule) bool {
	if r.Gesture != o.Gesture || r.Action != o.Action {
		return false
	}
	return r.Action != ActionType || r.Param == o.Param
}

// CheckDuplicate returns ErrDuplicate if r collides with an existing rule.
func CheckDuplicate(existing []Rule, r Rule) error {
	for _, e := range existing {
		if e.ID != r.ID && e.SameAs(r) {
			return ErrDuplicate
		}
	}
	return nil
}

// SplitAction splits a committed action name into its action and parameter.
func SplitAction(name string) (action, param string) {
	for _, p := range []string{ActionReadText, ActionType} {
		if strings.HasPrefix(name, p+"-") {
			return p, strings.TrimPrefix(name, p+"-")
		}
	}
	return name, ""
}

// Match is the result of a successful evaluation.
type Match struct {
	Rule   Rule
	Action string
}

type compiled struct {
	rule      Rule
	condition map[string]bool
	action    string
}

// Table evaluates rules in order. It is immutable once built.
type Table struct {
	rules []compiled
}

// NewTable compiles the enabled rules, keeping their order.
func NewTable(rules []Rule) *Table {
	t := &Table{}
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		t.rules = append(t.rules, compiled{
			rule:      r,
			condition: r.Condition(),
			action:    r.ActionName(),
		})
	}
	return t
}

// Len returns the number of active rules.
func (t *Table) Len() int {
	return len(t.rules)
}

// Evaluate returns the first rule whose condition holds for s. Conditions
// naming an unknown signal never hold.
func (t *Table) Evaluate(s gesture.Signals) (Match, bool) {
	for _, c := range t.rules {
		if matches(c.condition, s) {
			return Match{Rule: c.rule, Action: c.action}, true
		}
	}
	return Match{}, false
}

func matches(cond map[string]bool, s gesture.Signals) bool {
	for name, want := range cond {
		got, known := s.Lookup(name)
		if !known || got != want {
			return false
		}
	}
	return true
}

// Gate enforces a minimum interval between committed actions. Every
// committed action counts, whichever component issued it.
type Gate struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     time.Time
}

// NewGate creates a Gate with the given cooldown.
func NewGate(cooldown time.Duration) *Gate {
	return &Gate{cooldown: cooldown}
}

// SetCooldown changes the cooldown.
func (g *Gate) SetCooldown(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldown = d
}

// Allow reports whether an action may be committed at at, and if so marks
// it as committed.
func (g *Gate) Allow(at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.last.IsZero() && at.Sub(g.last) < g.cooldown {
		return false
	}
	g.last = at
	return true
}

// Mark records an action committed outside the gate at at.
func (g *Gate) Mark(at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if at.After(g.last) {
		g.last = at
	}
}
