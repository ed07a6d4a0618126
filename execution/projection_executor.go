package execution

import (
	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// Project produces, for each input tuple, a new tuple holding the chosen fields in the chosen
// order. Output tuples are synthesized and have no RecordID.
type Project struct {
	operator
	child  DbIterator
	fields []int
	desc   *storage.TupleDesc

	values []common.Value
}

// NewProject creates a projection of child onto fields, which may repeat or reorder columns.
func NewProject(child DbIterator, fields []int) (*Project, error) {
	if child == nil {
		return nil, common.Errorf(common.InvalidArgumentError, "projection needs a child iterator")
	}
	if len(fields) == 0 {
		return nil, common.Errorf(common.InvalidArgumentError, "projection needs at least one field")
	}
	in := child.Descriptor()
	types := make([]common.Type, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		if f < 0 || f >= in.NumFields() {
			return nil, common.Errorf(common.InvalidArgumentError, "projected field %d out of range", f)
		}
		types[i] = in.FieldType(f)
		names[i] = in.FieldName(f)
	}
	desc, err := storage.NewTupleDesc(types, names)
	if err != nil {
		return nil, err
	}

	p := &Project{child: child, fields: fields, desc: desc, values: make([]common.Value, len(fields))}
	p.operator = newOperator(p.readNext)
	return p, nil
}

func (p *Project) readNext() (storage.Tuple, bool, error) {
	ok, err := p.child.HasNext()
	if err != nil || !ok {
		return storage.Tuple{}, false, err
	}
	t, err := p.child.Next()
	if err != nil {
		return storage.Tuple{}, false, err
	}
	for i, f := range p.fields {
		p.values[i] = t.GetValue(f)
	}
	out, err := storage.NewTuple(p.desc, p.values...)
	if err != nil {
		return storage.Tuple{}, false, err
	}
	return out, true, nil
}

func (p *Project) Open() error {
	if err := p.child.Open(); err != nil {
		return err
	}
	p.open()
	return nil
}

func (p *Project) Rewind() error {
	if !p.opened {
		return common.Errorf(common.IteratorMisuseError, "rewind of a closed projection")
	}
	if err := p.child.Rewind(); err != nil {
		return err
	}
	p.reset()
	return nil
}

func (p *Project) Close() error {
	p.close()
	return p.child.Close()
}

func (p *Project) Descriptor() *storage.TupleDesc {
	return p.desc
}
