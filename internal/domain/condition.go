package domain

// Operator is a comparison operator used by condition specs.
type Operator string

const (
	OpGT    Operator = "gt"
	OpGTE   Operator = "gte"
	OpLT    Operator = "lt"
	OpLTE   Operator = "lte"
	OpEQ    Operator = "eq"
	OpNEQ   Operator = "neq"
	OpRange Operator = "range"
)

// LogicMode joins the members of a condition group.
type LogicMode string

const (
	LogicAND LogicMode = "AND"
	LogicOR  LogicMode = "OR"
)

// Range is an inclusive [Min, Max] interval for the range operator.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ConditionSpec compares a single field value against a threshold or range.
// Field references either a raw bar field ("close", "volume", ...) or a named
// indicator output ("rsi", "macd.signal", "bands.upper", ...).
type ConditionSpec struct {
	Field     string   `yaml:"field"`
	Operator  Operator `yaml:"operator"`
	Threshold float64  `yaml:"threshold"`
	Range     *Range   `yaml:"range,omitempty"`
}

// ConditionGroup is a logic mode over a list of conditions and nested groups.
// Evaluation is pure and total: a field that has no defined value makes the
// referencing condition unsatisfied, it never errors.
type ConditionGroup struct {
	Logic      LogicMode        `yaml:"logic"`
	Conditions []ConditionSpec  `yaml:"conditions,omitempty"`
	Groups     []ConditionGroup `yaml:"groups,omitempty"`
}

// Leaves returns the total number of leaf conditions in the group tree.
func (g ConditionGroup) Leaves() int {
	n := len(g.Conditions)
	for _, sub := range g.Groups {
		n += sub.Leaves()
	}
	return n
}
