package execution

import (
	"errors"
	"fmt"

	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// Aggregate computes one integer aggregate over its child, optionally grouped by a field.
//
// Output tuples are (aggregate) when ungrouped and (group, aggregate) when grouped. The
// aggregate column is named "<op>(<field>)".
type Aggregate struct {
	child   DbIterator
	aField  int
	gbField int
	op      AggOp
	desc    *storage.TupleDesc

	results *TupleIterator
}

// NewAggregate creates an aggregate of child's field aField, grouped by gbField (or NoGrouping).
func NewAggregate(child DbIterator, aField int, gbField int, op AggOp) (*Aggregate, error) {
	if child == nil {
		return nil, common.Errorf(common.InvalidArgumentError, "aggregate needs a child iterator")
	}
	in := child.Descriptor()
	if aField < 0 || aField >= in.NumFields() {
		return nil, common.Errorf(common.InvalidArgumentError, "aggregate field %d out of range", aField)
	}
	if gbField != NoGrouping && (gbField < 0 || gbField >= in.NumFields()) {
		return nil, common.Errorf(common.InvalidArgumentError, "group-by field %d out of range", gbField)
	}
	if in.FieldType(aField) != common.IntType {
		return nil, common.Errorf(common.TypeMismatchError, "cannot aggregate %s field %q", in.FieldType(aField), in.FieldName(aField))
	}

	aggName := fmt.Sprintf("%s(%s)", op, in.FieldName(aField))
	var desc *storage.TupleDesc
	var err error
	if gbField == NoGrouping {
		desc, err = storage.NewTupleDesc([]common.Type{common.IntType}, []string{aggName})
	} else {
		desc, err = storage.NewTupleDesc([]common.Type{in.FieldType(gbField), common.IntType},
			[]string{in.FieldName(gbField), aggName})
	}
	if err != nil {
		return nil, err
	}
	return &Aggregate{child: child, aField: aField, gbField: gbField, op: op, desc: desc}, nil
}

func (a *Aggregate) groupType() common.Type {
	if a.gbField == NoGrouping {
		return common.DefaultType
	}
	return a.child.Descriptor().FieldType(a.gbField)
}

// Open drains the child into a fresh aggregator.
func (a *Aggregate) Open() error {
	agg, err := NewIntegerAggregator(a.gbField, a.groupType(), a.aField, a.op, a.desc)
	if err != nil {
		return err
	}
	if err := a.child.Open(); err != nil {
		return err
	}
	for {
		ok, err := a.child.HasNext()
		if err != nil {
			return errors.Join(err, a.child.Close())
		}
		if !ok {
			break
		}
		t, err := a.child.Next()
		if err == nil {
			err = agg.Merge(&t)
		}
		if err != nil {
			return errors.Join(err, a.child.Close())
		}
	}
	a.results = agg.Iterator()
	return a.results.Open()
}

func (a *Aggregate) HasNext() (bool, error) {
	if a.results == nil {
		return false, nil
	}
	return a.results.HasNext()
}

func (a *Aggregate) Next() (storage.Tuple, error) {
	if a.results == nil {
		return storage.Tuple{}, common.Errorf(common.IteratorMisuseError, "Next called on a closed aggregate")
	}
	return a.results.Next()
}

func (a *Aggregate) Rewind() error {
	if a.results == nil {
		return common.Errorf(common.IteratorMisuseError, "rewind of a closed aggregate")
	}
	return a.results.Rewind()
}

func (a *Aggregate) Close() error {
	a.results = nil
	return a.child.Close()
}

func (a *Aggregate) Descriptor() *storage.TupleDesc {
	return a.desc
}
