package execution

import (
	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// Limit passes through at most limit tuples of its child.
type Limit struct {
	operator
	child DbIterator
	limit int

	numEmitted int
}

// NewLimit creates a Limit over child. limit must not be negative.
func NewLimit(child DbIterator, limit int) (*Limit, error) {
	if child == nil {
		return nil, common.Errorf(common.InvalidArgumentError, "limit needs a child iterator")
	}
	if limit < 0 {
		return nil, common.Errorf(common.InvalidArgumentError, "negative limit %d", limit)
	}
	l := &Limit{child: child, limit: limit}
	l.operator = newOperator(l.readNext)
	return l, nil
}

func (l *Limit) readNext() (storage.Tuple, bool, error) {
	if l.numEmitted >= l.limit {
		return storage.Tuple{}, false, nil
	}
	ok, err := l.child.HasNext()
	if err != nil || !ok {
		return storage.Tuple{}, false, err
	}
	t, err := l.child.Next()
	if err != nil {
		return storage.Tuple{}, false, err
	}
	l.numEmitted++
	return t, true, nil
}

func (l *Limit) Open() error {
	if err := l.child.Open(); err != nil {
		return err
	}
	l.numEmitted = 0
	l.open()
	return nil
}

func (l *Limit) Rewind() error {
	if !l.opened {
		return common.Errorf(common.IteratorMisuseError, "rewind of a closed limit")
	}
	if err := l.child.Rewind(); err != nil {
		return err
	}
	l.numEmitted = 0
	l.reset()
	return nil
}

func (l *Limit) Close() error {
	l.close()
	return l.child.Close()
}

func (l *Limit) Descriptor() *storage.TupleDesc {
	return l.child.Descriptor()
}
