package model

import "time"

// TableConfig is the declarative definition of one table, loaded from
// ConfigDir/<tableName>.json. It names the remote endpoint, the columns to
// show and the filters the user may apply. Immutable after loading; the
// loader caches it keyed by file modification time.
type TableConfig struct {
	TableName            string
	PageTitle            string             `json:"pageTitle"`
	Endpoint             string             `json:"endpoint"`
	PrimaryKey           string             `json:"primaryKey"`
	PageSize             int                `json:"pageSize"`
	OrderBy              string             `json:"orderBy"`
	Columns              []ColumnDescriptor `json:"columns"`
	Filters              []FilterDescriptor `json:"filters"`
	StaticParams         map[string]string  `json:"staticParams"`
	DisableCustomFilters bool               `json:"disableCustomFilters"`
}

type CachedTableConfig struct {
	Config  *TableConfig
	ModTime time.Time
}

// ColumnFields lists the accessor paths of all declared columns in order.
func (c *TableConfig) ColumnFields() []string {
	fields := make([]string, 0, len(c.Columns))
	for _, col := range c.Columns {
		fields = append(fields, col.Field)
	}
	return fields
}

// Column returns the descriptor for the given accessor path.
func (c *TableConfig) Column(field string) (ColumnDescriptor, bool) {
	for _, col := range c.Columns {
		if col.Field == field {
			return col, true
		}
	}
	return ColumnDescriptor{}, false
}
