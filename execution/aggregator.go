package execution

import (
	"strings"

	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// AggOp is an aggregation operator over integer fields.
type AggOp int

const (
	AggCount AggOp = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

func (op AggOp) String() string {
	switch op {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	}
	return "???"
}

// ParseAggOp parses an operator name such as "sum" or "AVG".
func ParseAggOp(s string) (AggOp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count":
		return AggCount, nil
	case "sum":
		return AggSum, nil
	case "min":
		return AggMin, nil
	case "max":
		return AggMax, nil
	case "avg":
		return AggAvg, nil
	}
	return AggCount, common.Errorf(common.InvalidArgumentError, "unknown aggregate %q", s)
}

// NoGrouping is the group-by field index of an aggregate over the whole input.
const NoGrouping = -1

// aggState accumulates one group. count and sum are kept for every operator so AVG can be
// recomputed exactly after each merge.
type aggState struct {
	value int64
	count int64
	sum   int64
}

// IntegerAggregator computes COUNT, SUM, MIN, MAX or AVG of an integer field, optionally grouped
// by another field. Tuples are fed one at a time with Merge; Iterator returns the result so far.
type IntegerAggregator struct {
	gbField int
	gbType  common.Type
	aField  int
	op      AggOp
	outDesc *storage.TupleDesc

	// Schema of the first merged tuple; later tuples must match it
	latched *storage.TupleDesc
	groups  map[common.Value]*aggState
	// Group keys in first-seen order. The ungrouped key is the nil Value.
	order []common.Value
}

// NewIntegerAggregator creates an aggregator of field aField with operator op. gbField is the
// group-by field index, or NoGrouping, and gbType its type. outDesc describes the result tuples:
// one int field when ungrouped, or the group field followed by an int field when grouped.
func NewIntegerAggregator(gbField int, gbType common.Type, aField int, op AggOp, outDesc *storage.TupleDesc) (*IntegerAggregator, error) {
	if aField < 0 {
		return nil, common.Errorf(common.InvalidArgumentError, "aggregate field %d is invalid", aField)
	}
	if gbField < NoGrouping {
		return nil, common.Errorf(common.InvalidArgumentError, "group-by field %d is invalid", gbField)
	}
	if op < AggCount || op > AggAvg {
		return nil, common.Errorf(common.InvalidArgumentError, "unknown aggregate operator %d", int(op))
	}
	if outDesc == nil {
		return nil, common.Errorf(common.InvalidArgumentError, "aggregate needs an output descriptor")
	}

	wantFields := 1
	if gbField != NoGrouping {
		wantFields = 2
		if gbType != common.IntType && gbType != common.StringType {
			return nil, common.Errorf(common.InvalidArgumentError, "group-by type %s is invalid", gbType)
		}
	}
	if outDesc.NumFields() != wantFields {
		return nil, common.Errorf(common.InvalidArgumentError, "output descriptor has %d fields, expected %d",
			outDesc.NumFields(), wantFields)
	}
	if outDesc.FieldType(wantFields-1) != common.IntType {
		return nil, common.Errorf(common.InvalidArgumentError, "aggregate output field must be int")
	}
	if wantFields == 2 && outDesc.FieldType(0) != gbType {
		return nil, common.Errorf(common.InvalidArgumentError, "group output field is %s, group-by type is %s",
			outDesc.FieldType(0), gbType)
	}

	return &IntegerAggregator{
		gbField: gbField,
		gbType:  gbType,
		aField:  aField,
		op:      op,
		outDesc: outDesc,
		groups:  make(map[common.Value]*aggState),
	}, nil
}

// Descriptor returns the schema of the result tuples.
func (a *IntegerAggregator) Descriptor() *storage.TupleDesc {
	return a.outDesc
}

// Merge folds t into its group.
func (a *IntegerAggregator) Merge(t *storage.Tuple) error {
	desc := t.Descriptor()
	if a.latched == nil {
		if a.aField >= desc.NumFields() || a.gbField >= desc.NumFields() {
			return common.Errorf(common.InvalidArgumentError, "tuple with %d fields has no field %d",
				desc.NumFields(), max(a.aField, a.gbField))
		}
		if desc.FieldType(a.aField) != common.IntType {
			return common.Errorf(common.TypeMismatchError, "cannot aggregate %s field %d", desc.FieldType(a.aField), a.aField)
		}
		if a.gbField != NoGrouping && desc.FieldType(a.gbField) != a.gbType {
			return common.Errorf(common.TypeMismatchError, "group-by field %d is %s, expected %s",
				a.gbField, desc.FieldType(a.gbField), a.gbType)
		}
		a.latched = desc
	} else if !desc.Equals(a.latched) {
		return common.Errorf(common.TypeMismatchError, "tuple schema (%s) differs from earlier tuples (%s)", desc, a.latched)
	}

	var key common.Value
	if a.gbField != NoGrouping {
		key = t.GetValue(a.gbField)
	}
	v := t.GetValue(a.aField).IntValue()

	state, ok := a.groups[key]
	if !ok {
		state = &aggState{value: v}
		if a.op == AggCount {
			state.value = 0
		}
		a.groups[key] = state
		a.order = append(a.order, key)
	}
	state.count++
	state.sum += v

	switch a.op {
	case AggCount:
		state.value = state.count
	case AggSum:
		state.value = state.sum
	case AggMin:
		state.value = min(state.value, v)
	case AggMax:
		state.value = max(state.value, v)
	case AggAvg:
		state.value = state.sum / state.count
	}
	return nil
}

// NumGroups returns the number of groups seen so far.
func (a *IntegerAggregator) NumGroups() int {
	return len(a.groups)
}

// Iterator returns the current result, one tuple per group in first-seen order. The result is a
// snapshot: tuples merged afterwards do not show up in it.
func (a *IntegerAggregator) Iterator() *TupleIterator {
	tuples := make([]storage.Tuple, 0, len(a.order))
	for _, key := range a.order {
		agg := common.NewIntValue(a.groups[key].value)
		var t storage.Tuple
		var err error
		if a.gbField == NoGrouping {
			t, err = storage.NewTuple(a.outDesc, agg)
		} else {
			t, err = storage.NewTuple(a.outDesc, key, agg)
		}
		common.Assert(err == nil, "aggregate result does not fit its descriptor: %v", err)
		tuples = append(tuples, t)
	}
	return NewTupleIterator(a.outDesc, tuples)
}
