package common

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_RoundTrip(t *testing.T) {
	buf := make([]byte, StringLength)

	NewIntValue(-42).WriteTo(buf)
	assert.Equal(t, int64(-42), AsValue(IntType, buf).IntValue())

	NewStringValue("hello").WriteTo(buf)
	v := AsValue(StringType, buf)
	assert.Equal(t, "hello", v.StringValue())

	// The value must not alias the buffer it was decoded from
	buf[0] = 'j'
	assert.Equal(t, "hello", v.StringValue())

	full := "abcdefghijklmnopqrstuvwxyz012345"
	require.Len(t, full, StringLength)
	NewStringValue(full).WriteTo(buf)
	assert.Equal(t, full, AsValue(StringType, buf).StringValue())
}

func TestValue_Compare(t *testing.T) {
	assert.Equal(t, -1, NewIntValue(1).Compare(NewIntValue(2)))
	assert.Equal(t, 0, NewIntValue(2).Compare(NewIntValue(2)))
	assert.Equal(t, 1, NewIntValue(3).Compare(NewIntValue(2)))
	assert.Equal(t, -1, NewStringValue("a").Compare(NewStringValue("b")))
	assert.Panics(t, func() { NewIntValue(1).Compare(NewStringValue("1")) })
}

func TestValue_Evaluate(t *testing.T) {
	five := NewIntValue(5)
	cases := []struct {
		op       CompareOp
		operand  int64
		expected bool
	}{
		{Equals, 5, true},
		{Equals, 4, false},
		{NotEquals, 4, true},
		{GreaterThan, 4, true},
		{GreaterThan, 5, false},
		{GreaterThanOrEq, 5, true},
		{LessThan, 6, true},
		{LessThanOrEq, 5, true},
		{LessThanOrEq, 4, false},
		{Like, 5, true},
		{Like, 6, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("5 %s %d", c.op, c.operand), func(t *testing.T) {
			res, err := five.Evaluate(c.op, NewIntValue(c.operand))
			require.NoError(t, err)
			assert.Equal(t, c.expected, res)
		})
	}

	res, err := NewStringValue("database").Evaluate(Like, NewStringValue("tab"))
	require.NoError(t, err)
	assert.True(t, res)
	res, err = NewStringValue("database").Evaluate(Like, NewStringValue("xyz"))
	require.NoError(t, err)
	assert.False(t, res)

	_, err = five.Evaluate(Equals, NewStringValue("5"))
	assert.True(t, IsCode(err, TypeMismatchError))
}

func TestParse(t *testing.T) {
	typ, err := ParseType("INT")
	require.NoError(t, err)
	assert.Equal(t, IntType, typ)
	typ, err = ParseType("String")
	require.NoError(t, err)
	assert.Equal(t, StringType, typ)
	_, err = ParseType("float")
	assert.True(t, IsCode(err, InvalidArgumentError))

	v, err := ParseValue(IntType, " 17 ")
	require.NoError(t, err)
	assert.Equal(t, int64(17), v.IntValue())
	_, err = ParseValue(IntType, "seventeen")
	assert.Error(t, err)
	_, err = ParseValue(StringType, "this string is definitely longer than thirty-two bytes")
	assert.Error(t, err)

	for _, s := range []string{"=", ">", "<", "<=", ">=", "like", "<>"} {
		op, err := ParseCompareOp(s)
		require.NoError(t, err)
		assert.Equal(t, s, op.String())
	}
	op, err := ParseCompareOp("!=")
	require.NoError(t, err)
	assert.Equal(t, NotEquals, op)
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Errorf(NoSuchObjectError, "table %q", "t"))
	assert.True(t, IsCode(err, NoSuchObjectError))
	assert.False(t, IsCode(err, DuplicateObjectError))
	assert.False(t, IsCode(fmt.Errorf("plain"), NoSuchObjectError))
	assert.Contains(t, err.Error(), "NoSuchObjectError")
}
