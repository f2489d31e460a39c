package debugger

import (
	"fmt"

	"github.com/gophjp/fjp/symtab"
	"github.com/gophjp/fjp/vm"
)

// ExpressionEvaluator evaluates watch/print/break-condition expressions
// against a live machine and symbol table, and keeps a $1, $2, ...
// history of previously evaluated values.
type ExpressionEvaluator struct {
	valueHistory []int
	valueNumber  int
}

// NewExpressionEvaluator creates a new expression evaluator
func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{}
}

// EvaluateExpression evaluates expr and records the result in history.
func (e *ExpressionEvaluator) EvaluateExpression(expr string, machine *vm.VM, symbols *symtab.Table) (int, error) {
	result, err := e.evaluate(expr, machine, symbols)
	if err != nil {
		return 0, err
	}

	e.valueHistory = append(e.valueHistory, result)
	e.valueNumber = len(e.valueHistory)

	return result, nil
}

// Evaluate evaluates expr and returns it as a boolean (for break/watch
// conditions): nonzero is true.
func (e *ExpressionEvaluator) Evaluate(expr string, machine *vm.VM, symbols *symtab.Table) (bool, error) {
	result, err := e.evaluate(expr, machine, symbols)
	if err != nil {
		return false, err
	}
	return result != 0, nil
}

// GetValueNumber returns the current value number
func (e *ExpressionEvaluator) GetValueNumber() int {
	return e.valueNumber
}

// GetValue returns a value from history by number
func (e *ExpressionEvaluator) GetValue(number int) (int, error) {
	if number < 1 || number > len(e.valueHistory) {
		return 0, fmt.Errorf("value $%d not in history", number)
	}
	return e.valueHistory[number-1], nil
}

// evaluate lexes, parses, and evaluates expr in one pass.
func (e *ExpressionEvaluator) evaluate(expr string, machine *vm.VM, symbols *symtab.Table) (int, error) {
	if expr == "" {
		return 0, fmt.Errorf("empty expression")
	}
	tokens := NewExprLexer(expr).TokenizeAll()
	parser := NewExprParser(tokens, machine, symbols, e)
	return parser.Parse()
}

// Reset clears the value history
func (e *ExpressionEvaluator) Reset() {
	e.valueHistory = e.valueHistory[:0]
	e.valueNumber = 0
}
