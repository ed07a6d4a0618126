package storage

import (
	"fmt"
	"strings"

	"mit.edu/dsg/minidb/common"
)

// FieldType names and types one column of a TupleDesc. An empty Name means the field is unnamed.
type FieldType struct {
	Name string
	Type common.Type
}

// TupleDesc describes the schema of a stream of tuples: an ordered list of (name, type) pairs.
// It also caches the physical layout (field offsets and row width) used by heap pages.
//
// A TupleDesc is immutable after construction.
type TupleDesc struct {
	fields      []FieldType
	offsets     []int // Cache of column_id => physical offset of first byte in a row
	bytesPerRow int
}

// NewTupleDesc creates a descriptor from parallel slices of types and names. names may be nil,
// in which case every field is unnamed.
func NewTupleDesc(types []common.Type, names []string) (*TupleDesc, error) {
	if len(types) == 0 {
		return nil, common.Errorf(common.InvalidArgumentError, "a tuple descriptor needs at least one field")
	}
	if names != nil && len(names) != len(types) {
		return nil, common.Errorf(common.InvalidArgumentError, "%d names given for %d types", len(names), len(types))
	}
	fields := make([]FieldType, len(types))
	for i, t := range types {
		if t != common.IntType && t != common.StringType {
			return nil, common.Errorf(common.InvalidArgumentError, "field %d has unknown type", i)
		}
		fields[i].Type = t
		if names != nil {
			fields[i].Name = names[i]
		}
	}
	return newTupleDesc(fields), nil
}

func newTupleDesc(fields []FieldType) *TupleDesc {
	size := 0
	offsets := make([]int, len(fields))
	for i, f := range fields {
		offsets[i] = size
		size += f.Type.Size()
	}
	common.Assert(common.AlignedTo8(size), "tuple size should always be aligned to 8 bytes in our system")
	return &TupleDesc{fields: fields, offsets: offsets, bytesPerRow: size}
}

// NumFields returns the number of fields in the schema.
func (td *TupleDesc) NumFields() int {
	return len(td.fields)
}

// FieldName returns the (possibly empty) name of field i.
func (td *TupleDesc) FieldName(i int) string {
	return td.fields[i].Name
}

// FieldType returns the type of field i.
func (td *TupleDesc) FieldType(i int) common.Type {
	return td.fields[i].Type
}

// Fields returns a copy of the (name, type) pairs.
func (td *TupleDesc) Fields() []FieldType {
	out := make([]FieldType, len(td.fields))
	copy(out, td.fields)
	return out
}

// Types returns the type sequence of the schema.
func (td *TupleDesc) Types() []common.Type {
	types := make([]common.Type, len(td.fields))
	for i, f := range td.fields {
		types[i] = f.Type
	}
	return types
}

// FieldIndex returns the index of the field called name. It fails with NoSuchObjectError if no
// field has that name and with InvalidArgumentError if more than one does.
func (td *TupleDesc) FieldIndex(name string) (int, error) {
	found := -1
	for i, f := range td.fields {
		if f.Name != "" && f.Name == name {
			if found != -1 {
				return -1, common.Errorf(common.InvalidArgumentError, "field name %q is ambiguous", name)
			}
			found = i
		}
	}
	if found == -1 {
		return -1, common.Errorf(common.NoSuchObjectError, "no field named %q", name)
	}
	return found, nil
}

// BytesPerTuple returns the fixed size in bytes required to store one row.
func (td *TupleDesc) BytesPerTuple() int {
	return td.bytesPerRow
}

// FieldOffset returns the byte offset where field i begins within a row.
func (td *TupleDesc) FieldOffset(i int) int {
	return td.offsets[i]
}

// Equals reports whether both descriptors have the same number of fields and the same type
// sequence. Field names are not compared.
func (td *TupleDesc) Equals(other *TupleDesc) bool {
	if td == other {
		return true
	}
	if other == nil || len(td.fields) != len(other.fields) {
		return false
	}
	for i := range td.fields {
		if td.fields[i].Type != other.fields[i].Type {
			return false
		}
	}
	return true
}

// Merge returns a new descriptor holding the fields of td followed by the fields of other.
func (td *TupleDesc) Merge(other *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(td.fields)+len(other.fields))
	fields = append(fields, td.fields...)
	fields = append(fields, other.fields...)
	return newTupleDesc(fields)
}

// WithNames returns a descriptor with the same types and the given names.
func (td *TupleDesc) WithNames(names []string) *TupleDesc {
	common.Assert(len(names) == len(td.fields), "name count mismatch")
	fields := make([]FieldType, len(td.fields))
	for i, f := range td.fields {
		fields[i] = FieldType{Name: names[i], Type: f.Type}
	}
	return newTupleDesc(fields)
}

func (td *TupleDesc) String() string {
	parts := make([]string, len(td.fields))
	for i, f := range td.fields {
		parts[i] = fmt.Sprintf("%s(%s)", f.Type, f.Name)
	}
	return strings.Join(parts, ", ")
}

// readValue deserializes field i from the physical row bytes.
func (td *TupleDesc) readValue(row []byte, i int) common.Value {
	return common.AsValue(td.fields[i].Type, row[td.offsets[i]:])
}

// Tuple is a row flowing through the execution pipeline: a descriptor, one Value per field, and
// the RecordID of the slot it was read from. Tuples synthesized by operators (e.g. aggregates)
// carry a nil RecordID.
//
// Tuples are immutable once built; operators may share them freely.
type Tuple struct {
	desc   *TupleDesc
	values []common.Value
	rid    common.RecordID
}

// NewTuple builds a tuple and checks that values conform to desc.
func NewTuple(desc *TupleDesc, values ...common.Value) (Tuple, error) {
	if desc == nil {
		return Tuple{}, common.Errorf(common.InvalidArgumentError, "tuple descriptor is nil")
	}
	if len(values) != desc.NumFields() {
		return Tuple{}, common.Errorf(common.InvalidArgumentError, "got %d values for %d fields", len(values), desc.NumFields())
	}
	for i, v := range values {
		if v.Type() != desc.FieldType(i) {
			return Tuple{}, common.Errorf(common.TypeMismatchError, "field %d: expected %s, got %s", i, desc.FieldType(i), v.Type())
		}
	}
	owned := make([]common.Value, len(values))
	copy(owned, values)
	return Tuple{desc: desc, values: owned}, nil
}

// FromRawTuple decodes a physical row into a Tuple located at rid.
func FromRawTuple(row []byte, desc *TupleDesc, rid common.RecordID) Tuple {
	common.Assert(len(row) >= desc.BytesPerTuple(), "row too short for descriptor")
	values := make([]common.Value, desc.NumFields())
	for i := range values {
		values[i] = desc.readValue(row, i)
	}
	return Tuple{desc: desc, values: values, rid: rid}
}

// IsNil checks if the tuple is uninitialized.
func (t *Tuple) IsNil() bool {
	return t.desc == nil
}

// Descriptor returns the schema the tuple conforms to.
func (t *Tuple) Descriptor() *TupleDesc {
	return t.desc
}

// WithDescriptor returns the same tuple relabelled with desc, which must have the same types.
func (t *Tuple) WithDescriptor(desc *TupleDesc) Tuple {
	common.Assert(t.desc.Equals(desc), "relabelled tuple must keep its types")
	return Tuple{desc: desc, values: t.values, rid: t.rid}
}

// RID returns the RecordID of the tuple, or a nil RecordID if it was synthesized.
func (t *Tuple) RID() common.RecordID {
	return t.rid
}

// NumColumns returns the number of fields in the tuple.
func (t *Tuple) NumColumns() int {
	return len(t.values)
}

// GetValue retrieves the value at index i.
func (t *Tuple) GetValue(i int) common.Value {
	return t.values[i]
}

// WriteTo serializes the tuple into row, which must be at least BytesPerTuple() long.
func (t *Tuple) WriteTo(row []byte) {
	common.Assert(len(row) >= t.desc.BytesPerTuple(), "buffer too small")
	for i, v := range t.values {
		v.WriteTo(row[t.desc.FieldOffset(i):])
	}
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = v.String()
	}
	return strings.Join(parts, "\t")
}
