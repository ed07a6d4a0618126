package execution

import (
	"errors"
	"sort"

	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// SortKey orders tuples by one field.
type SortKey struct {
	Field      int
	Descending bool
}

// OrderBy sorts the tuples of its child. It is a blocking operator: Open drains the child and
// sorts everything before the first tuple is returned. Ties keep their input order.
type OrderBy struct {
	child DbIterator
	keys  []SortKey

	sorted *TupleIterator
}

// NewOrderBy creates a sort of child by keys, most significant first.
func NewOrderBy(child DbIterator, keys []SortKey) (*OrderBy, error) {
	if child == nil {
		return nil, common.Errorf(common.InvalidArgumentError, "sort needs a child iterator")
	}
	if len(keys) == 0 {
		return nil, common.Errorf(common.InvalidArgumentError, "sort needs at least one key")
	}
	for _, k := range keys {
		if k.Field < 0 || k.Field >= child.Descriptor().NumFields() {
			return nil, common.Errorf(common.InvalidArgumentError, "sort field %d out of range", k.Field)
		}
	}
	return &OrderBy{child: child, keys: keys}, nil
}

func (o *OrderBy) less(t1, t2 *storage.Tuple) bool {
	for _, k := range o.keys {
		cmp := t1.GetValue(k.Field).Compare(t2.GetValue(k.Field))
		if cmp == 0 {
			continue
		}
		if k.Descending {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

func (o *OrderBy) Open() error {
	if err := o.child.Open(); err != nil {
		return err
	}
	tuples, err := Collect(o.child)
	if err != nil {
		return errors.Join(err, o.child.Close())
	}
	sort.SliceStable(tuples, func(i, j int) bool {
		return o.less(&tuples[i], &tuples[j])
	})
	o.sorted = NewTupleIterator(o.child.Descriptor(), tuples)
	return o.sorted.Open()
}

func (o *OrderBy) HasNext() (bool, error) {
	if o.sorted == nil {
		return false, nil
	}
	return o.sorted.HasNext()
}

func (o *OrderBy) Next() (storage.Tuple, error) {
	if o.sorted == nil {
		return storage.Tuple{}, common.Errorf(common.IteratorMisuseError, "Next called on a closed sort")
	}
	return o.sorted.Next()
}

func (o *OrderBy) Rewind() error {
	if o.sorted == nil {
		return common.Errorf(common.IteratorMisuseError, "rewind of a closed sort")
	}
	return o.sorted.Rewind()
}

func (o *OrderBy) Close() error {
	o.sorted = nil
	return o.child.Close()
}

func (o *OrderBy) Descriptor() *storage.TupleDesc {
	return o.child.Descriptor()
}
