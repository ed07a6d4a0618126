package execution

import (
	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// DbIterator is the interface that every tuple producer in a query pipeline implements: table
// scans, filters and aggregates alike. Pipelines are pulled synchronously by the caller; a single
// DbIterator must not be used from more than one goroutine at a time.
//
// Lifecycle:
//   - Open prepares the iterator and positions it before the first tuple.
//   - HasNext reports whether Next will succeed. A closed iterator has no next tuple.
//   - Next returns the next tuple, or IteratorMisuseError if HasNext would return false.
//   - Rewind restarts from the first tuple. It fails with IteratorMisuseError unless open.
//   - Close releases resources. It may be called any number of times, including before Open.
type DbIterator interface {
	Open() error
	HasNext() (bool, error)
	Next() (storage.Tuple, error)
	Rewind() error
	Close() error
	// Descriptor returns the schema every produced tuple conforms to.
	Descriptor() *storage.TupleDesc
}

// ReadNextFunc produces the next tuple of an operator, or ok == false once there are none left.
type ReadNextFunc func() (t storage.Tuple, ok bool, err error)

// operator turns a ReadNextFunc into the HasNext/Next half of DbIterator, caching one tuple of
// lookahead. Operators embed it and call open, reset and close from their lifecycle methods.
type operator struct {
	readNext ReadNextFunc

	opened       bool
	lookahead    storage.Tuple
	hasLookahead bool
}

func newOperator(readNext ReadNextFunc) operator {
	return operator{readNext: readNext}
}

func (o *operator) open() {
	o.opened = true
	o.reset()
}

// reset drops the lookahead so the next pull goes back to readNext.
func (o *operator) reset() {
	o.lookahead = storage.Tuple{}
	o.hasLookahead = false
}

func (o *operator) close() {
	o.opened = false
	o.reset()
}

func (o *operator) HasNext() (bool, error) {
	if !o.opened {
		return false, nil
	}
	if !o.hasLookahead {
		t, ok, err := o.readNext()
		if err != nil || !ok {
			return false, err
		}
		o.lookahead, o.hasLookahead = t, true
	}
	return true, nil
}

func (o *operator) Next() (storage.Tuple, error) {
	ok, err := o.HasNext()
	if err != nil {
		return storage.Tuple{}, err
	}
	if !ok {
		if !o.opened {
			return storage.Tuple{}, common.Errorf(common.IteratorMisuseError, "Next called on a closed iterator")
		}
		return storage.Tuple{}, common.Errorf(common.IteratorMisuseError, "Next called with no tuples left")
	}
	t := o.lookahead
	o.reset()
	return t, nil
}

// Collect pulls every remaining tuple out of an open iterator.
func Collect(it DbIterator) ([]storage.Tuple, error) {
	var result []storage.Tuple
	for {
		ok, err := it.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			return result, nil
		}
		t, err := it.Next()
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
}

// TupleIterator replays a fixed slice of tuples. Filters and aggregates use it to expose their
// materialized results.
type TupleIterator struct {
	operator
	desc   *storage.TupleDesc
	tuples []storage.Tuple
	pos    int
}

// NewTupleIterator returns a closed iterator over tuples, which must all conform to desc.
func NewTupleIterator(desc *storage.TupleDesc, tuples []storage.Tuple) *TupleIterator {
	it := &TupleIterator{desc: desc, tuples: tuples}
	it.operator = newOperator(func() (storage.Tuple, bool, error) {
		if it.pos >= len(it.tuples) {
			return storage.Tuple{}, false, nil
		}
		t := it.tuples[it.pos]
		it.pos++
		return t, true, nil
	})
	return it
}

func (it *TupleIterator) Open() error {
	it.pos = 0
	it.open()
	return nil
}

func (it *TupleIterator) Rewind() error {
	if !it.opened {
		return common.Errorf(common.IteratorMisuseError, "rewind of a closed iterator")
	}
	it.pos = 0
	it.reset()
	return nil
}

func (it *TupleIterator) Close() error {
	it.close()
	return nil
}

func (it *TupleIterator) Descriptor() *storage.TupleDesc {
	return it.desc
}

// Len returns the number of tuples the iterator replays.
func (it *TupleIterator) Len() int {
	return len(it.tuples)
}
