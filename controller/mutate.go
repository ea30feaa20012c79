package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tabworks/tabula/utils"
)

// ChangeRecord is the audit row written for every confirmed field change.
type ChangeRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TableName string `gorm:"not null" json:"table_name"`
	RecordID  int64  `gorm:"not null;default:0" json:"record_id"`
	Field     string `gorm:"not null" json:"field"`
	DataFrom  string `gorm:"not null" json:"data_from"`
	DataTo    string `gorm:"not null" json:"data_to"`
	ChangedAt int64  `gorm:"autoCreateTime" json:"changed_at"`
}

// Create serves POST /api/:table. The created record is returned with its
// assigned primary key.
func (c *Controller) Create(ctx *gin.Context) {
	table := c.guard(ctx, "add")
	if table == "" {
		return
	}

	var payload map[string]interface{}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	fields, ok := c.sanitizePayload(ctx, table, payload)
	if !ok {
		return
	}
	if len(fields) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "no valid fields"})
		return
	}

	pkColumn, err := primaryKeyColumn(c.DB, table)
	if err != nil {
		c.serverError(ctx, "primaryKeyColumn", err)
		return
	}

	if err := c.DB.Table(table).Create(fields).Error; err != nil {
		c.serverError(ctx, "create", err)
		return
	}

	// gorm reports the assigned id under its internal "@id" key; surface it
	// as the table's real primary-key column.
	if id, ok := fields["@id"]; ok {
		delete(fields, "@id")
		fields[pkColumn] = id
	}

	if c.Config.ChangeLog {
		c.writeChangeRecord(table, utils.ExtractInt64(fields[pkColumn]), "", "", "created")
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true, "record": fields})
}

// Update serves PATCH /api/:table/:id. Only changed fields are written;
// unchanged values are dropped so the audit trail stays meaningful.
func (c *Controller) Update(ctx *gin.Context) {
	table := c.guard(ctx, "change")
	if table == "" {
		return
	}

	id, ok := c.recordID(ctx)
	if !ok {
		return
	}

	var payload map[string]interface{}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	updateData, ok := c.sanitizePayload(ctx, table, payload)
	if !ok {
		return
	}
	if len(updateData) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "no valid fields to update"})
		return
	}

	pkColumn, err := primaryKeyColumn(c.DB, table)
	if err != nil {
		c.serverError(ctx, "primaryKeyColumn", err)
		return
	}

	columns := make([]string, 0, len(updateData))
	for column := range updateData {
		columns = append(columns, column)
	}

	originalData := make(map[string]interface{})
	if err := c.DB.Table(table).Where(pkColumn+" = ?", id).Select(columns).Take(&originalData).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "record not found", "id": id})
		return
	}

	// Drop fields whose value did not change. Compared as strings to cover
	// scan types like []uint8 vs string.
	for column, newValue := range updateData {
		if oldValue, exists := originalData[column]; exists {
			if fmt.Sprint(oldValue) == fmt.Sprint(newValue) {
				delete(updateData, column)
			}
		}
	}

	if len(updateData) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "no new data for update"})
		return
	}

	if err := c.DB.Table(table).Where(pkColumn+" = ?", id).Updates(updateData).Error; err != nil {
		c.serverError(ctx, "update", err)
		return
	}

	if c.Config.ChangeLog {
		for column, newValue := range updateData {
			c.writeChangeRecord(table, id, column, fmt.Sprint(originalData[column]), fmt.Sprint(newValue))
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete serves DELETE /api/:table/:id.
func (c *Controller) Delete(ctx *gin.Context) {
	table := c.guard(ctx, "delete")
	if table == "" {
		return
	}

	id, ok := c.recordID(ctx)
	if !ok {
		return
	}

	pkColumn, err := primaryKeyColumn(c.DB, table)
	if err != nil {
		c.serverError(ctx, "primaryKeyColumn", err)
		return
	}

	result := c.DB.Table(table).Where(pkColumn+" = ?", id).Delete(nil)
	if result.Error != nil {
		c.serverError(ctx, "delete", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "record not found", "id": id})
		return
	}

	if c.Config.ChangeLog {
		c.writeChangeRecord(table, id, "", "", "deleted")
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// sanitizePayload keeps payload entries that name real columns and coerces
// numeric columns, rejecting values that cannot be read as numbers.
func (c *Controller) sanitizePayload(ctx *gin.Context, table string, payload map[string]interface{}) (map[string]interface{}, bool) {
	types, err := columnTypes(c.DB, table)
	if err != nil {
		c.serverError(ctx, "columnTypes", err)
		return nil, false
	}

	pkColumn, err := primaryKeyColumn(c.DB, table)
	if err != nil {
		c.serverError(ctx, "primaryKeyColumn", err)
		return nil, false
	}

	fields := make(map[string]interface{}, len(payload))
	for key, value := range payload {
		column := utils.CamelToSnake(key)
		colType, known := types[column]
		if !known || column == pkColumn {
			continue
		}

		if utils.IsNumericColumnType(colType) {
			cleaned, ok := utils.SanitizeNumeric(value)
			if !ok {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("field %q expects a numeric value", column)})
				return nil, false
			}
			value = cleaned
		}
		fields[column] = value
	}
	return fields, true
}

func (c *Controller) recordID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return 0, false
	}
	return id, true
}

func (c *Controller) writeChangeRecord(table string, id int64, field, from, to string) {
	record := ChangeRecord{
		TableName: table,
		RecordID:  id,
		Field:     field,
		DataFrom:  from,
		DataTo:    to,
		ChangedAt: time.Now().Unix(),
	}
	if err := c.DB.Create(&record).Error; err != nil {
		c.Log.Error().Err(err).Str("table", table).Int64("id", id).Msg("change record write failed")
	}
}
