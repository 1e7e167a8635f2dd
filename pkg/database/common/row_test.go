package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowGetSet(t *testing.T) {
	row := NewRow([]string{"id", "name"})
	row.Set("id", 1)
	row.Set("name", "alice")

	value, ok := row.Get("id")
	require.True(t, ok)
	assert.Equal(t, 1, value)

	value, ok = row.Get("name")
	require.True(t, ok)
	assert.Equal(t, "alice", value)

	_, ok = row.Get("missing")
	assert.False(t, ok)

	// Setting an unknown column appends it.
	row.Set("email", "alice@example.com")
	assert.Equal(t, []string{"id", "name", "email"}, row.Columns)
	assert.Equal(t, 3, row.Len())
}

func TestRowFromMapDeterministic(t *testing.T) {
	row := RowFromMap(map[string]interface{}{
		"zeta":  1,
		"alpha": 2,
		"mid":   3,
	})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, row.Columns)
	assert.Equal(t, []interface{}{2, 3, 1}, row.Values)
}

func TestRowToMap(t *testing.T) {
	row := Row{
		Columns: []string{"id", "name"},
		Values:  []interface{}{7, "bob"},
	}

	assert.Equal(t, map[string]interface{}{"id": 7, "name": "bob"}, row.ToMap())
}

func TestRowMarshalJSONPreservesOrder(t *testing.T) {
	row := Row{
		Columns: []string{"zeta", "alpha", "mid"},
		Values:  []interface{}{1, "two", nil},
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)

	// Keys stay in column order, not sorted.
	assert.Equal(t, `{"zeta":1,"alpha":"two","mid":null}`, string(data))
}

func TestRowUnmarshalJSONPreservesOrder(t *testing.T) {
	var row Row
	err := json.Unmarshal([]byte(`{"zeta":1,"alpha":"two","mid":true}`), &row)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, row.Columns)
	assert.Equal(t, json.Number("1"), row.Values[0])
	assert.Equal(t, "two", row.Values[1])
	assert.Equal(t, true, row.Values[2])
}

func TestRowJSONRoundTrip(t *testing.T) {
	original := Row{
		Columns: []string{"c", "b", "a"},
		Values:  []interface{}{"first", "second", "third"},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Row
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original.Columns, decoded.Columns)
	assert.Equal(t, original.Values, decoded.Values)
}

func TestRowUnmarshalJSONRejectsNonObject(t *testing.T) {
	var row Row
	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &row))
	assert.Error(t, json.Unmarshal([]byte(`"text"`), &row))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdentifier("users"))
	assert.Equal(t, `"user""s"`, QuoteIdentifier(`user"s`))
}

func TestQuoteIdentifierBacktick(t *testing.T) {
	assert.Equal(t, "`users`", QuoteIdentifierBacktick("users"))
	assert.Equal(t, "`user``s`", QuoteIdentifierBacktick("user`s"))
}
