package execution

import (
	"fmt"
	"strings"

	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// Predicate compares one field of a tuple against a constant.
type Predicate struct {
	field   int
	op      common.CompareOp
	operand common.Value
}

// NewPredicate returns the predicate "tuple[field] op operand".
func NewPredicate(field int, op common.CompareOp, operand common.Value) Predicate {
	return Predicate{field: field, op: op, operand: operand}
}

func (p Predicate) Field() int {
	return p.field
}

func (p Predicate) Op() common.CompareOp {
	return p.op
}

func (p Predicate) Operand() common.Value {
	return p.operand
}

// Evaluate applies the predicate to t. It fails with InvalidArgumentError if t has no such field
// and with TypeMismatchError if the field and the operand have different types.
func (p Predicate) Evaluate(t *storage.Tuple) (bool, error) {
	if p.field < 0 || p.field >= t.NumColumns() {
		return false, common.Errorf(common.InvalidArgumentError, "predicate field %d out of range for %d columns",
			p.field, t.NumColumns())
	}
	return t.GetValue(p.field).Evaluate(p.op, p.operand)
}

func (p Predicate) String() string {
	return fmt.Sprintf("f%d %s %s", p.field, p.op, p.operand)
}

// ResolveField finds the field called name in desc. A bare name also matches a qualified field
// "<alias>.<name>" as long as only one field does.
func ResolveField(desc *storage.TupleDesc, name string) (int, error) {
	idx, err := desc.FieldIndex(name)
	if err == nil || !common.IsCode(err, common.NoSuchObjectError) || strings.Contains(name, ".") {
		return idx, err
	}
	found := -1
	for i := 0; i < desc.NumFields(); i++ {
		if strings.HasSuffix(desc.FieldName(i), "."+name) {
			if found != -1 {
				return -1, common.Errorf(common.InvalidArgumentError, "field name %q is ambiguous", name)
			}
			found = i
		}
	}
	if found == -1 {
		return -1, err
	}
	return found, nil
}

// ParsePredicate parses "field op value" against desc, e.g. `age >= 30` or `name like 'ann'`.
// The value is parsed with the type of the field; single or double quotes around it are removed.
func ParsePredicate(desc *storage.TupleDesc, expr string) (Predicate, error) {
	tokens := strings.Fields(expr)
	if len(tokens) < 3 {
		return Predicate{}, common.Errorf(common.InvalidArgumentError, "expected 'field op value', got %q", expr)
	}
	field, err := ResolveField(desc, tokens[0])
	if err != nil {
		return Predicate{}, err
	}
	op, err := common.ParseCompareOp(tokens[1])
	if err != nil {
		return Predicate{}, err
	}
	text := strings.Join(tokens[2:], " ")
	if len(text) >= 2 && (text[0] == '\'' || text[0] == '"') && text[len(text)-1] == text[0] {
		text = text[1 : len(text)-1]
	}
	operand, err := common.ParseValue(desc.FieldType(field), text)
	if err != nil {
		return Predicate{}, err
	}
	return NewPredicate(field, op, operand), nil
}
