package workflow

import (
	"fmt"
	"strings"
)

// Operator is a comparison applied by a Condition.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpExists   Operator = "exists"
	OpContains Operator = "contains"
)

// Condition is a declarative predicate over the accumulated result list.
// It replaces caller-supplied function values so that workflow requests can
// cross process and serialization boundaries.
//
// AgentID selects which prior results to look at (empty means the most
// recent result regardless of agent). Field addresses either the result
// status ("status") or a key of a map-shaped output ("output.<key>", or
// "output" for the whole value).
type Condition struct {
	AgentID  string   `json:"agentId,omitempty"`
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// Check validates the condition's shape.
func (c *Condition) Check() error {
	if c.Field == "" {
		return fmt.Errorf("field is required")
	}
	if c.Field != "status" && c.Field != "output" && !strings.HasPrefix(c.Field, "output.") {
		return fmt.Errorf("field must be %q, %q or %q, got %q", "status", "output", "output.<key>", c.Field)
	}
	switch c.Operator {
	case OpEq, OpNe, OpExists, OpContains:
		return nil
	case "":
		return fmt.Errorf("operator is required")
	default:
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
}

// Evaluate applies the condition to the results accumulated so far and
// reports whether the guarded step should run. A condition whose subject
// result does not exist yet evaluates to false, except for an "exists"
// check with a nil value which then evaluates to false as well (there is
// nothing to exist).
func (c *Condition) Evaluate(prior []AgentResult) bool {
	subject, ok := MostRecent(prior, c.AgentID)
	if !ok {
		return false
	}

	actual, found := c.resolve(subject)
	switch c.Operator {
	case OpExists:
		return found
	case OpEq:
		return found && equalValues(actual, c.Value)
	case OpNe:
		return found && !equalValues(actual, c.Value)
	case OpContains:
		return found && containsValue(actual, c.Value)
	}
	return false
}

// resolve extracts the addressed field from a result.
func (c *Condition) resolve(r *AgentResult) (any, bool) {
	if c.Field == "status" {
		return string(r.Status), true
	}
	if c.Field == "output" {
		return r.Output, r.Output != nil
	}
	key := strings.TrimPrefix(c.Field, "output.")
	m, ok := r.Output.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// MostRecent finds the last result matching agentID (any result when the id
// is empty). Duplicate agent ids are legal in a request, so "most recent
// matching result" is the only deterministic rule; both condition and
// dependency resolution use it.
func MostRecent(results []AgentResult, agentID string) (*AgentResult, bool) {
	for i := len(results) - 1; i >= 0; i-- {
		if agentID == "" || results[i].AgentID == agentID {
			return &results[i], true
		}
	}
	return nil, false
}

func equalValues(a, b any) bool {
	if a == b {
		return true
	}
	// JSON numbers decode as float64; tolerate int literals from Go callers.
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func containsValue(actual, want any) bool {
	switch a := actual.(type) {
	case string:
		return strings.Contains(a, fmt.Sprint(want))
	case []any:
		for _, item := range a {
			if equalValues(item, want) {
				return true
			}
		}
	case map[string]any:
		_, ok := a[fmt.Sprint(want)]
		return ok
	}
	return false
}
