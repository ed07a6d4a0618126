package common

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

const (
	PageSize     int = 4096
	IntSize      int = 8
	StringLength int = 32
)

type Type int8

const (
	// For uninitialized Values
	DefaultType Type = iota
	IntType
	StringType
)

// Size returns the fixed-width storage size of the type in bytes
func (t Type) Size() int {
	switch t {
	case IntType:
		return IntSize
	case StringType:
		return StringLength
	default:
		panic("unknown type")
	}
}

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// ParseType maps the textual type names used in catalog descriptions ("int", "string") to a Type.
// Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int":
		return IntType, nil
	case "string":
		return StringType, nil
	}
	return DefaultType, Errorf(InvalidArgumentError, "unknown type %q", s)
}

// ObjectID is a unique identifier for a table in the database.
type ObjectID uint32

const InvalidObjectID ObjectID = 0

// PageID uniquely identifies a page within the database.
type PageID struct {
	Oid     ObjectID
	PageNum int32
}

func (p *PageID) String() string {
	return fmt.Sprintf("Page(%d, %d)", p.Oid, p.PageNum)
}

// IsNil checks if the PageID is valid.
func (p *PageID) IsNil() bool {
	return p.Oid == 0
}

// RecordID identifies a specific tuple (row) in the database via its PageID and Slot index.
type RecordID struct {
	PageID
	Slot int32
}

// IsNil checks if the RecordID refers to a valid page.
func (r *RecordID) IsNil() bool {
	return r.PageID.IsNil()
}

func (r *RecordID) String() string {
	return fmt.Sprintf("rid(%s, %d)", r.PageID.String(), r.Slot)
}

type TransactionID uint64

const InvalidTransactionID TransactionID = 0

// Value represents a (deserialized) data item in a tuple. The zero Value has DefaultType and is
// used as a sentinel (e.g. the group key of an ungrouped aggregate); it is never stored on a page.
//
// Value is comparable with ==, so it can key Go maps directly.
type Value struct {
	t                Type
	underlyingInt    int64
	underlyingString string
}

// AsValue extracts a value from a raw storage buffer. String bytes are copied, so the result does
// not alias the page it was read from.
func AsValue(t Type, source []byte) Value {
	val := Value{t: t}
	switch t {
	case IntType:
		val.underlyingInt = int64(binary.LittleEndian.Uint64(source))
	case StringType:
		Assert(len(source) >= StringLength, "string too short")
		realLen := StringLength
		for i := 0; i < StringLength; i++ {
			if source[i] == 0 {
				realLen = i
				break
			}
		}
		val.underlyingString = string(source[:realLen])
	default:
		panic("unknown type")
	}
	return val
}

// IsNil returns true if the Value is uninitialized.
func (v Value) IsNil() bool {
	return v.t == DefaultType
}

// NewIntValue creates a new integer Value.
func NewIntValue(v int64) Value {
	return Value{
		t:             IntType,
		underlyingInt: v,
	}
}

// NewStringValue creates a new string Value. It panics if v does not fit in StringLength bytes;
// use ParseValue to validate untrusted input.
func NewStringValue(v string) Value {
	if len(v) > StringLength {
		panic("string too long")
	}
	return Value{
		t:                StringType,
		underlyingString: v,
	}
}

// ParseValue parses the textual form of a value of type t.
func ParseValue(t Type, s string) (Value, error) {
	switch t {
	case IntType:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Value{}, Errorf(InvalidArgumentError, "invalid int %q", s)
		}
		return NewIntValue(i), nil
	case StringType:
		if len(s) > StringLength {
			return Value{}, Errorf(InvalidArgumentError, "string %q longer than %d bytes", s, StringLength)
		}
		return NewStringValue(s), nil
	}
	return Value{}, Errorf(InvalidArgumentError, "cannot parse value of type %s", t)
}

// Type returns the type of the Value.
func (v Value) Type() Type {
	return v.t
}

// IntValue returns the underlying integer.
func (v Value) IntValue() int64 {
	Assert(v.t == IntType, "type mismatch in IntValue")
	return v.underlyingInt
}

// StringValue returns the underlying string.
func (v Value) StringValue() string {
	Assert(v.t == StringType, "type mismatch in StringValue")
	return v.underlyingString
}

// SizeInBytes returns the serialization size (fixed width).
func (v Value) SizeInBytes() int {
	return v.t.Size()
}

// WriteTo serializes the Value into storage format.
func (v Value) WriteTo(data []byte) {
	Assert(len(data) >= v.SizeInBytes(), "buffer too small")

	switch v.t {
	case IntType:
		binary.LittleEndian.PutUint64(data, uint64(v.underlyingInt))
	case StringType:
		n := copy(data, v.underlyingString)
		for i := n; i < StringLength; i++ {
			data[i] = 0
		}
	}
}

func (v Value) String() string {
	switch v.t {
	case IntType:
		return strconv.FormatInt(v.underlyingInt, 10)
	case StringType:
		return v.underlyingString
	}
	return "<nil>"
}

// Compare compares two Values of the same type.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
func (v Value) Compare(other Value) int {
	Assert(v.t == other.t, "type mismatch in comparison")

	switch v.t {
	case IntType:
		if v.underlyingInt < other.underlyingInt {
			return -1
		}
		if v.underlyingInt > other.underlyingInt {
			return 1
		}
		return 0
	case StringType:
		return strings.Compare(v.underlyingString, other.underlyingString)
	}
	panic("unreachable")
}

// CompareOp is a comparison operator between two Values.
type CompareOp int

const (
	Equals CompareOp = iota
	GreaterThan
	LessThan
	LessThanOrEq
	GreaterThanOrEq
	Like
	NotEquals
)

func (op CompareOp) String() string {
	switch op {
	case Equals:
		return "="
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case LessThanOrEq:
		return "<="
	case GreaterThanOrEq:
		return ">="
	case Like:
		return "like"
	case NotEquals:
		return "<>"
	}
	return "???"
}

// ParseCompareOp parses the textual form of an operator. "!=" is accepted as a synonym of "<>".
func ParseCompareOp(s string) (CompareOp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "==":
		return Equals, nil
	case ">":
		return GreaterThan, nil
	case "<":
		return LessThan, nil
	case "<=":
		return LessThanOrEq, nil
	case ">=":
		return GreaterThanOrEq, nil
	case "like":
		return Like, nil
	case "<>", "!=":
		return NotEquals, nil
	}
	return Equals, Errorf(InvalidArgumentError, "unknown comparison operator %q", s)
}

// Evaluate applies op with v on the left and operand on the right. Both sides must hold the same
// type. Like tests substring containment for strings and equality for integers.
func (v Value) Evaluate(op CompareOp, operand Value) (bool, error) {
	if v.t != operand.t {
		return false, Errorf(TypeMismatchError, "cannot compare %s with %s", v.t, operand.t)
	}

	if op == Like {
		if v.t == StringType {
			return strings.Contains(v.underlyingString, operand.underlyingString), nil
		}
		return v.underlyingInt == operand.underlyingInt, nil
	}

	cmp := v.Compare(operand)
	switch op {
	case Equals:
		return cmp == 0, nil
	case NotEquals:
		return cmp != 0, nil
	case GreaterThan:
		return cmp > 0, nil
	case LessThan:
		return cmp < 0, nil
	case GreaterThanOrEq:
		return cmp >= 0, nil
	case LessThanOrEq:
		return cmp <= 0, nil
	}
	return false, Errorf(InvalidArgumentError, "unknown comparison operator %d", int(op))
}
