package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRowsEmpty(t *testing.T) {
	assert.Empty(t, ProfileRows(nil))
}

func TestProfileRowsTypesAndCardinality(t *testing.T) {
	rows := []Row{
		{"region": String("East"), "sales": Number(100), "day": String("2024-08-10"), "active": Bool(true), "code": String("12345"), "blank": Null()},
		{"region": String("East"), "sales": Number(50), "day": String("2024-08-11"), "active": Bool(false), "code": String("12346"), "blank": Null()},
		{"region": String("West"), "sales": Number(200), "day": String("2024-08-12"), "active": Bool(true), "code": String("12347"), "blank": Null()},
	}
	p := ProfileRows(rows)
	require.Len(t, p, 6)

	assert.Equal(t, ColumnProfile{OriginalName: "region", Type: TypeString, UniqueCount: 2}, p["region"])
	assert.Equal(t, TypeNumeric, p["sales"].Type)
	assert.Equal(t, 3, p["sales"].UniqueCount)
	assert.Equal(t, TypeDate, p["day"].Type)
	assert.Equal(t, TypeBoolean, p["active"].Type)
	// five characters or fewer never count as a date
	assert.Equal(t, TypeString, p["code"].Type)
	assert.Equal(t, ColumnProfile{OriginalName: "blank", Type: TypeString, UniqueCount: 0}, p["blank"])
}

func TestProfileRowsUsesFirstNonNullValueOnly(t *testing.T) {
	rows := []Row{
		{"mixed": Null()},
		{"mixed": String("n/a")},
		{"mixed": Number(3)},
		{"mixed": Number(4)},
	}
	p := ProfileRows(rows)
	assert.Equal(t, TypeString, p["mixed"].Type)
	assert.Equal(t, 3, p["mixed"].UniqueCount)
}

func TestProfileRowsOnlyFirstRowKeys(t *testing.T) {
	rows := []Row{
		{"a": Number(1)},
		{"a": Number(2), "b": String("late")},
	}
	p := ProfileRows(rows)
	assert.Equal(t, []string{"a"}, p.Names())
	assert.Nil(t, p.Lookup("b"))
}

func TestProfileRowsDeterministic(t *testing.T) {
	rows := []Row{
		{"x": String("a"), "y": Number(1), "z": String("2024-01-01")},
		{"x": String("b"), "y": Number(2), "z": String("2024-01-02")},
	}
	first := ProfileRows(rows)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ProfileRows(rows))
	}
}

func TestUniqueCountUsesStringCoercion(t *testing.T) {
	rows := []Row{{"v": Number(1)}, {"v": String("1")}, {"v": Bool(true)}}
	assert.Equal(t, 2, ProfileRows(rows)["v"].UniqueCount)
}
