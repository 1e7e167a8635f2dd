package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Row is an ordered field-name to value record. Unlike a plain map it
// preserves the column order reported by the engine, including through JSON
// marshaling.
type Row struct {
	Columns []string
	Values  []interface{}
}

// NewRow creates a row with the given columns and zero values.
func NewRow(columns []string) Row {
	return Row{
		Columns: columns,
		Values:  make([]interface{}, len(columns)),
	}
}

// RowFromMap creates a row from a map with columns in sorted order, so the
// result is deterministic.
func RowFromMap(values map[string]interface{}) Row {
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	row := Row{
		Columns: columns,
		Values:  make([]interface{}, len(columns)),
	}
	for i, column := range columns {
		row.Values[i] = values[column]
	}
	return row
}

// Len returns the number of fields in the row.
func (r Row) Len() int {
	return len(r.Columns)
}

// Get returns the value for a column and whether the column exists.
func (r Row) Get(column string) (interface{}, bool) {
	for i, name := range r.Columns {
		if name == column && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Set updates the value for a column, appending the column if it is not
// present yet.
func (r *Row) Set(column string, value interface{}) {
	for i, name := range r.Columns {
		if name == column {
			r.Values[i] = value
			return
		}
	}
	r.Columns = append(r.Columns, column)
	r.Values = append(r.Values, value)
}

// ToMap flattens the row into a map, losing column order.
func (r Row) ToMap() map[string]interface{} {
	values := make(map[string]interface{}, len(r.Columns))
	for i, column := range r.Columns {
		if i < len(r.Values) {
			values[column] = r.Values[i]
		}
	}
	return values
}

// MarshalJSON emits the row as a JSON object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, column := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var value interface{}
		if i < len(r.Values) {
			value = r.Values[i]
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object preserving its key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object")
	}

	r.Columns = r.Columns[:0]
	r.Values = r.Values[:0]

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row key must be a string")
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return err
		}

		r.Columns = append(r.Columns, key)
		r.Values = append(r.Values, value)
	}

	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
