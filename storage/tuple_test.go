package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/minidb/common"
)

func TestTupleDesc_Basics(t *testing.T) {
	desc, err := NewTupleDesc([]common.Type{common.IntType, common.StringType, common.IntType}, []string{"id", "name", ""})
	require.NoError(t, err)

	assert.Equal(t, 3, desc.NumFields())
	assert.Equal(t, 8+32+8, desc.BytesPerTuple())
	assert.Equal(t, 8, desc.FieldOffset(1))
	assert.Equal(t, 40, desc.FieldOffset(2))
	assert.Equal(t, "name", desc.FieldName(1))
	assert.Equal(t, common.StringType, desc.FieldType(1))

	idx, err := desc.FieldIndex("name")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = desc.FieldIndex("missing")
	assert.True(t, common.IsCode(err, common.NoSuchObjectError))
	_, err = desc.FieldIndex("")
	assert.True(t, common.IsCode(err, common.NoSuchObjectError), "Unnamed fields cannot be looked up")
}

func TestTupleDesc_Validation(t *testing.T) {
	_, err := NewTupleDesc(nil, nil)
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
	_, err = NewTupleDesc([]common.Type{common.IntType}, []string{"a", "b"})
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
	_, err = NewTupleDesc([]common.Type{common.DefaultType}, nil)
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))

	desc, err := NewTupleDesc([]common.Type{common.IntType, common.IntType}, []string{"x", "x"})
	require.NoError(t, err)
	_, err = desc.FieldIndex("x")
	assert.True(t, common.IsCode(err, common.InvalidArgumentError), "Duplicate names are ambiguous")
}

func TestTupleDesc_EqualsAndMerge(t *testing.T) {
	a, err := NewTupleDesc([]common.Type{common.IntType, common.StringType}, []string{"a", "b"})
	require.NoError(t, err)
	b, err := NewTupleDesc([]common.Type{common.IntType, common.StringType}, nil)
	require.NoError(t, err)
	c, err := NewTupleDesc([]common.Type{common.StringType, common.IntType}, []string{"a", "b"})
	require.NoError(t, err)

	assert.True(t, a.Equals(b), "Names are ignored by Equals")
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(nil))

	merged := a.Merge(c)
	assert.Equal(t, 4, merged.NumFields())
	assert.Equal(t, a.BytesPerTuple()+c.BytesPerTuple(), merged.BytesPerTuple())
	assert.Equal(t, []common.Type{common.IntType, common.StringType, common.StringType, common.IntType}, merged.Types())
	assert.Equal(t, "b", merged.FieldName(3))

	renamed := a.WithNames([]string{"x", "y"})
	assert.Equal(t, "y", renamed.FieldName(1))
	assert.Equal(t, "b", a.FieldName(1), "WithNames must not modify the receiver")
}

func TestTuple_RawRoundTrip(t *testing.T) {
	desc, err := NewTupleDesc([]common.Type{common.IntType, common.StringType}, []string{"id", "name"})
	require.NoError(t, err)

	tup, err := NewTuple(desc, common.NewIntValue(7), common.NewStringValue("seven"))
	require.NoError(t, err)
	noRID := tup.RID()
	assert.True(t, noRID.IsNil(), "Constructed tuples have no record id")

	row := make([]byte, desc.BytesPerTuple())
	tup.WriteTo(row)

	rid := common.RecordID{PageID: common.PageID{Oid: 3, PageNum: 1}, Slot: 4}
	decoded := FromRawTuple(row, desc, rid)
	assert.Equal(t, int64(7), decoded.GetValue(0).IntValue())
	assert.Equal(t, "seven", decoded.GetValue(1).StringValue())
	assert.Equal(t, rid, decoded.RID())
	assert.Equal(t, "7\tseven", decoded.String())

	_, err = NewTuple(desc, common.NewIntValue(1))
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
	_, err = NewTuple(desc, common.NewStringValue("1"), common.NewStringValue("x"))
	assert.True(t, common.IsCode(err, common.TypeMismatchError))
}
