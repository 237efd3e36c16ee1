package types

// Term is a variable ("?x" in source form) or a constant.
type Term struct {
	Name string
	Var  bool
}

// V builds a variable term.
func V(name string) Term { return Term{Name: name, Var: true} }

// C builds a constant term.
func C(name string) Term { return Term{Name: name} }

func (t Term) String() string {
	if t.Var {
		return "?" + t.Name
	}
	return t.Name
}

// Bindings maps variable names to entity ids or literals.
type Bindings map[string]string

// With returns a copy of b extended with name=value.
func (b Bindings) With(name, value string) Bindings {
	out := make(Bindings, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[name] = value
	return out
}

// FailureSpec annotates a condition node with the failure it reports.
type FailureSpec struct {
	Kind     string
	Feedback string
}

// Annotated carries an optional failure annotation. Embedded in every condition node.
type Annotated struct {
	OnFail *FailureSpec
}

// Failure returns the node's annotation, or nil.
func (a Annotated) Failure() *FailureSpec { return a.OnFail }

// Condition is a node of a boolean condition tree.
// The set of implementations is closed: And, Or, Not, Forall, Exists, NumComp, Match.
type Condition interface {
	Failure() *FailureSpec
	condition()
}

// And holds when all children hold; bindings flow left to right.
type And struct {
	Annotated
	Children []Condition
}

// Or holds when any child holds; the first satisfied branch wins.
type Or struct {
	Annotated
	Children []Condition
}

// Not holds when its child yields no bindings.
type Not struct {
	Annotated
	Child Condition
}

// Forall holds when Body holds for every entity of Type bound to Var.
type Forall struct {
	Annotated
	Var  string
	Type string
	Body Condition
}

// Exists holds when Body holds for at least one entity of Type bound to Var.
type Exists struct {
	Annotated
	Var  string
	Type string
	Body Condition
}

// Comparison operators for NumComp.
const (
	OpEq = "="
	OpLt = "<"
	OpLe = "<="
	OpGt = ">"
	OpGe = ">="
)

// NumExpr is an integer literal or a numeric fact lookup.
type NumExpr struct {
	Literal int
	Pred    string // "" for a literal
	Args    []Term // lookup arguments, excluding the value position
}

// NumComp compares two integer expressions.
type NumComp struct {
	Annotated
	Op       string
	LHS, RHS NumExpr
}

// Match holds for facts of Pred unifying with Args. Free variables are bound.
type Match struct {
	Annotated
	Pred string
	Args []Term
}

func (And) condition()     {}
func (Or) condition()      {}
func (Not) condition()     {}
func (Forall) condition()  {}
func (Exists) condition()  {}
func (NumComp) condition() {}
func (Match) condition()   {}

// Effect is a node of an effect tree.
// The set of implementations is closed: AndEffect, Add, Remove, When, ForallEffect, NumUpdate.
type Effect interface {
	effect()
}

// AndEffect applies children in declaration order within one batch.
type AndEffect struct {
	Children []Effect
}

// Add asserts a fact.
type Add struct {
	Pred string
	Args []Term
}

// Remove retracts a fact.
type Remove struct {
	Pred string
	Args []Term
}

// When includes Body only if Cond holds against the pre-effect state.
type When struct {
	Cond Condition
	Body Effect
}

// ForallEffect includes Body once per entity of Type.
type ForallEffect struct {
	Var  string
	Type string
	Body Effect
}

// Numeric update operators.
const (
	OpIncrease = "increase"
	OpDecrease = "decrease"
	OpAssign   = "assign"
)

// NumUpdate changes the value stored by a numeric predicate.
type NumUpdate struct {
	Op     string
	Pred   string
	Args   []Term // excluding the value position
	Amount NumExpr
}

func (AndEffect) effect()    {}
func (Add) effect()          {}
func (Remove) effect()       {}
func (When) effect()         {}
func (ForallEffect) effect() {}
func (NumUpdate) effect()    {}
