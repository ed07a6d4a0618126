package execution

import (
	"errors"
	"fmt"

	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// Filter yields the tuples of its child that satisfy a predicate.
//
// Open drains the whole child and keeps the matching tuples, so Rewind only restarts the buffer
// and never touches the child again. Memory use grows with the number of matches.
type Filter struct {
	pred  Predicate
	child DbIterator

	matches *TupleIterator
}

// NewFilter creates a new Filter over child.
func NewFilter(pred Predicate, child DbIterator) (*Filter, error) {
	if child == nil {
		return nil, common.Errorf(common.InvalidArgumentError, "filter needs a child iterator")
	}
	return &Filter{pred: pred, child: child}, nil
}

// Predicate returns the predicate the filter applies.
func (f *Filter) Predicate() Predicate {
	return f.pred
}

func (f *Filter) Open() error {
	if err := f.child.Open(); err != nil {
		return err
	}
	var kept []storage.Tuple
	for {
		ok, err := f.child.HasNext()
		if err != nil {
			return f.abort(err)
		}
		if !ok {
			break
		}
		t, err := f.child.Next()
		if err != nil {
			return f.abort(err)
		}
		match, err := f.pred.Evaluate(&t)
		if err != nil {
			return f.abort(err)
		}
		if match {
			kept = append(kept, t)
		}
	}
	f.matches = NewTupleIterator(f.child.Descriptor(), kept)
	return f.matches.Open()
}

// abort closes the child after a failed Open.
func (f *Filter) abort(err error) error {
	return errors.Join(err, f.child.Close())
}

func (f *Filter) HasNext() (bool, error) {
	if f.matches == nil {
		return false, nil
	}
	return f.matches.HasNext()
}

func (f *Filter) Next() (storage.Tuple, error) {
	if f.matches == nil {
		return storage.Tuple{}, common.Errorf(common.IteratorMisuseError, "Next called on a closed filter")
	}
	return f.matches.Next()
}

func (f *Filter) Rewind() error {
	if f.matches == nil {
		return common.Errorf(common.IteratorMisuseError, "rewind of a closed filter")
	}
	return f.matches.Rewind()
}

// Close discards the buffered matches and closes the child.
func (f *Filter) Close() error {
	f.matches = nil
	if err := f.child.Close(); err != nil {
		return fmt.Errorf("close filter child: %w", err)
	}
	return nil
}

func (f *Filter) Descriptor() *storage.TupleDesc {
	return f.child.Descriptor()
}
