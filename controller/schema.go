package controller

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ColumnSchema describes one column of a served table.
type ColumnSchema struct {
	Name         string
	Type         string
	IsPrimaryKey bool
	IsNullable   bool
}

var (
	schemaCacheMu sync.Mutex
	schemaCache   = make(map[string][]ColumnSchema)
)

func tableSchema(db *gorm.DB, tableName string) ([]ColumnSchema, error) {
	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()

	if schema, ok := schemaCache[tableName]; ok {
		return schema, nil
	}

	var schema []ColumnSchema

	switch dialector := db.Dialector.Name(); dialector {
	case "sqlite", "sqlite3":
		type pragmaInfo struct {
			Name    string `gorm:"column:name"`
			Type    string `gorm:"column:type"`
			NotNull int    `gorm:"column:notnull"`
			PK      int    `gorm:"column:pk"`
		}
		var results []pragmaInfo
		query := fmt.Sprintf("PRAGMA table_info(`%s`);", tableName)
		if err := db.Raw(query).Scan(&results).Error; err != nil {
			return nil, err
		}
		for _, col := range results {
			schema = append(schema, ColumnSchema{
				Name:         col.Name,
				Type:         strings.ToLower(col.Type),
				IsPrimaryKey: col.PK > 0,
				IsNullable:   col.NotNull == 0,
			})
		}

	case "postgres":
		query := `
			SELECT
				a.attname AS column_name,
				format_type(a.atttypid, a.atttypmod) AS data_type,
				(i.indisprimary IS TRUE) AS is_primary,
				(a.attnotnull IS FALSE) AS is_nullable
			FROM pg_attribute a
			LEFT JOIN pg_index i ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey) AND i.indisprimary
			JOIN pg_class c ON a.attrelid = c.oid
			WHERE c.relname = $1 AND a.attnum > 0 AND NOT a.attisdropped
		`
		type pgCol struct {
			ColumnName string
			DataType   string
			IsPrimary  bool
			IsNullable bool
		}
		var results []pgCol
		if err := db.Raw(query, tableName).Scan(&results).Error; err != nil {
			return nil, err
		}
		for _, col := range results {
			schema = append(schema, ColumnSchema{
				Name:         col.ColumnName,
				Type:         strings.ToLower(col.DataType),
				IsPrimaryKey: col.IsPrimary,
				IsNullable:   col.IsNullable,
			})
		}

	default:
		return nil, errors.Errorf("unsupported database driver: %s", dialector)
	}

	if len(schema) == 0 {
		return nil, errors.Errorf("table %s has no columns", tableName)
	}

	schemaCache[tableName] = schema
	return schema, nil
}

// primaryKeyColumn returns the primary key column name of a served table.
func primaryKeyColumn(db *gorm.DB, tableName string) (string, error) {
	schema, err := tableSchema(db, tableName)
	if err != nil {
		return "", err
	}
	for _, col := range schema {
		if col.IsPrimaryKey {
			return col.Name, nil
		}
	}
	return "", errors.Errorf("no primary key on table %s", tableName)
}

// columnTypes maps column name to SQL type for a served table.
func columnTypes(db *gorm.DB, tableName string) (map[string]string, error) {
	schema, err := tableSchema(db, tableName)
	if err != nil {
		return nil, err
	}
	types := make(map[string]string, len(schema))
	for _, col := range schema {
		types[col.Name] = col.Type
	}
	return types, nil
}

// resetSchemaCache is used by tests that rebuild tables in one process.
func resetSchemaCache() {
	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()
	schemaCache = make(map[string][]ColumnSchema)
}
