package filterlang

import (
	"fmt"
	"regexp"
)

// CompileFunc is supplied by a domain (e.g. the pilot attribute
// resolver) to turn a single Condition into a predicate over a model
// value T. It should validate the field name and operand type against
// what the domain actually knows.
type CompileFunc[T any] func(Condition) (func(T) bool, error)

// Compiled is a parsed expression whose conditions have all been bound
// to a concrete domain via CompileFunc.
type Compiled[T any] struct {
	root compiledNode[T]
}

type compiledNode[T any] interface {
	eval(T) bool
}

type compiledCond[T any] struct {
	fn func(T) bool
}

func (c compiledCond[T]) eval(v T) bool { return c.fn(v) }

type compiledBin[T any] struct {
	conn  Connective
	left  compiledNode[T]
	right compiledNode[T]
}

func (b compiledBin[T]) eval(v T) bool {
	if b.conn == ConnAnd {
		return b.left.eval(v) && b.right.eval(v)
	}
	return b.left.eval(v) || b.right.eval(v)
}

// Compile binds every Condition in expr against cb, short-circuiting on
// the first compile error, matching make_expr::<T>(...).compile(cb).
func Compile[T any](expr Expr, cb CompileFunc[T]) (*Compiled[T], error) {
	root, err := compileNode(expr, cb)
	if err != nil {
		return nil, err
	}
	return &Compiled[T]{root: root}, nil
}

func compileNode[T any](expr Expr, cb CompileFunc[T]) (compiledNode[T], error) {
	switch e := expr.(type) {
	case Condition:
		fn, err := cb(e)
		if err != nil {
			return nil, err
		}
		return compiledCond[T]{fn: fn}, nil
	case BinExpr:
		left, err := compileNode[T](e.Left, cb)
		if err != nil {
			return nil, err
		}
		right, err := compileNode[T](e.Right, cb)
		if err != nil {
			return nil, err
		}
		return compiledBin[T]{conn: e.Conn, left: left, right: right}, nil
	default:
		return nil, fmt.Errorf("%w: unknown expr node %T", errUnexpected, expr)
	}
}

// Evaluate runs the compiled predicate tree against model.
func (c *Compiled[T]) Evaluate(model T) bool {
	return c.root.eval(model)
}

// MakeExpr parses and returns the AST for a filter string; callers must
// still Compile it against a domain before Evaluate can be called. An
// empty input string returns a nil Expr and nil error, signaling "no
// filter" to callers.
func MakeExpr(input string) (Expr, error) {
	if input == "" {
		return nil, nil
	}
	return Parse(input)
}

// CompareNumeric implements the <,<=,>,>= and numeric ==,!= comparisons
// shared by every domain resolver: integer operands promote to float
// when the other side is float.
func CompareNumeric(op Op, lhs float64, rhs Value) bool {
	if rhs.Kind == ValString {
		// Cross-type comparison (numeric attribute vs string literal)
		// always yields false; ordering operators never reach here
		// because the parser already rejects a string RHS for them.
		return false
	}
	r := rhs.Float()
	switch op {
	case OpEq:
		return lhs == r
	case OpNeq:
		return lhs != r
	case OpLt:
		return lhs < r
	case OpLte:
		return lhs <= r
	case OpGt:
		return lhs > r
	case OpGte:
		return lhs >= r
	default:
		return false
	}
}

// CompareString implements ==,!=,=~,!~ for a string attribute. A
// malformed regex pattern makes =~ false and !~ true (a bad pattern
// matches nothing). The pattern is recompiled on every call rather
// than cached.
func CompareString(op Op, lhs string, rhs Value) bool {
	if rhs.Kind != ValString && (op == OpEq || op == OpNeq) {
		// Cross-type comparison always yields false.
		return false
	}
	switch op {
	case OpEq:
		return lhs == rhs.S
	case OpNeq:
		return lhs != rhs.S
	case OpMatch:
		re, err := regexp.Compile(rhs.S)
		if err != nil {
			return false
		}
		return re.MatchString(lhs)
	case OpNotMatch:
		re, err := regexp.Compile(rhs.S)
		if err != nil {
			return true
		}
		return !re.MatchString(lhs)
	default:
		return false
	}
}
