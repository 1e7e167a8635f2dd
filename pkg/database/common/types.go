// Package common holds the engine-neutral result types shared by all
// database engine packages: table structure descriptions and the ordered
// Row record.
package common

// ColumnInfo describes a single column of a table or collection.
type ColumnInfo struct {
	Name            string  `json:"name"`
	DataType        string  `json:"dataType"`
	IsNullable      bool    `json:"isNullable"`
	IsPrimaryKey    bool    `json:"isPrimaryKey"`
	IsUnique        bool    `json:"isUnique"`
	IsArray         bool    `json:"isArray"`
	IsAutoIncrement bool    `json:"isAutoIncrement"`
	ColumnDefault   *string `json:"columnDefault,omitempty"`
	VarcharLength   *int    `json:"varcharLength,omitempty"`
}

// IndexInfo describes an index on a table or collection.
type IndexInfo struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns,omitempty"`
	IsUnique bool     `json:"isUnique,omitempty"`
}

// Constraint describes a table constraint. For foreign keys the referenced
// side is carried in ForeignTable and ForeignColumn.
type Constraint struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	Table         string `json:"table"`
	Column        string `json:"column,omitempty"`
	ForeignTable  string `json:"foreignTable,omitempty"`
	ForeignColumn string `json:"foreignColumn,omitempty"`
	OnUpdate      string `json:"onUpdate,omitempty"`
	OnDelete      string `json:"onDelete,omitempty"`
	Definition    string `json:"definition,omitempty"`
}

// TableStructure is the complete description of one table: columns,
// primary key, indexes and constraints.
type TableStructure struct {
	Schema      string       `json:"schema,omitempty"`
	Name        string       `json:"name"`
	TableType   string       `json:"tableType,omitempty"`
	Columns     []ColumnInfo `json:"columns"`
	PrimaryKey  []string     `json:"primaryKey,omitempty"`
	Indexes     []IndexInfo  `json:"indexes,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
}
