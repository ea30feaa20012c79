package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// reserved query keys that never act as filters.
var reservedParams = map[string]bool{
	"limit":    true,
	"offset":   true,
	"ordering": true,
}

// filterSuffixes in match order: longer suffixes first so "__gte" is not
// consumed as "__gt" plus garbage.
var filterSuffixes = []struct {
	suffix   string
	operator string
}{
	{"__icontains", "icontains"},
	{"__gte", ">="},
	{"__lte", "<="},
	{"__ne", "<>"},
	{"__gt", ">"},
	{"__lt", "<"},
	{"__in", "in"},
}

// List serves GET /api/:table with the pagination envelope
// {count, next, previous, results}.
func (c *Controller) List(ctx *gin.Context) {
	table := c.guard(ctx, "read")
	if table == "" {
		return
	}

	types, err := columnTypes(c.DB, table)
	if err != nil {
		c.serverError(ctx, "columnTypes", err)
		return
	}

	limit := intQuery(ctx, "limit", 25)
	if limit < 1 {
		limit = 25
	}
	if limit > c.Config.MaxPageSize {
		limit = c.Config.MaxPageSize
	}
	offset := intQuery(ctx, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	q := c.DB.Table(table)

	q, ok := c.applyFilters(ctx, q, table, types)
	if !ok {
		return
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		c.serverError(ctx, "count", err)
		return
	}

	if ordering := ctx.Query("ordering"); ordering != "" {
		column := strings.TrimPrefix(ordering, "-")
		if _, known := types[column]; !known {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown ordering column", "column": column})
			return
		}
		direction := "ASC"
		if strings.HasPrefix(ordering, "-") {
			direction = "DESC"
		}
		q = q.Order(column + " " + direction)
	}

	var records []map[string]interface{}
	if err := q.Limit(limit).Offset(offset).Find(&records).Error; err != nil {
		c.serverError(ctx, "find", err)
		return
	}
	if records == nil {
		records = []map[string]interface{}{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count":    count,
		"next":     nextCursor(ctx, limit, offset, count),
		"previous": previousCursor(ctx, limit, offset),
		"results":  records,
	})
}

// applyFilters translates suffixed query parameters into WHERE clauses.
// Unknown columns are rejected; reserved keys are skipped.
func (c *Controller) applyFilters(ctx *gin.Context, q *gorm.DB, table string, types map[string]string) (*gorm.DB, bool) {
	for key, values := range ctx.Request.URL.Query() {
		if reservedParams[key] || len(values) == 0 {
			continue
		}
		value := values[0]

		column := key
		operator := "="
		for _, entry := range filterSuffixes {
			if strings.HasSuffix(key, entry.suffix) {
				column = strings.TrimSuffix(key, entry.suffix)
				operator = entry.operator
				break
			}
		}

		if _, known := types[column]; !known {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown filter column", "column": column})
			return nil, false
		}

		switch operator {
		case "icontains":
			q = q.Where(fmt.Sprintf("lower(%s) LIKE ?", column), "%"+strings.ToLower(value)+"%")
		case "in":
			q = q.Where(fmt.Sprintf("%s IN ?", column), strings.Split(value, ","))
		default:
			q = q.Where(fmt.Sprintf("%s %s ?", column, operator), value)
		}
	}
	return q, true
}

// nextCursor builds the next-page URL, or nil when the following offset
// falls outside the result set.
func nextCursor(ctx *gin.Context, limit, offset int, count int64) any {
	next := offset + limit
	if int64(next) >= count {
		return nil
	}
	return cursorURL(ctx, limit, next)
}

// previousCursor builds the previous-page URL. Any positive offset has a
// previous page; the target offset is clamped to 0 so a partial first step
// (say offset 1 with limit 25) still points back at the start.
func previousCursor(ctx *gin.Context, limit, offset int) any {
	if offset <= 0 {
		return nil
	}
	previous := offset - limit
	if previous < 0 {
		previous = 0
	}
	return cursorURL(ctx, limit, previous)
}

func cursorURL(ctx *gin.Context, limit, offset int) string {
	query := ctx.Request.URL.Query()
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	return ctx.Request.URL.Path + "?" + query.Encode()
}

func intQuery(ctx *gin.Context, name string, fallback int) int {
	raw := ctx.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (c *Controller) serverError(ctx *gin.Context, where string, err error) {
	c.Log.Error().Err(err).Str("where", where).Str("url", ctx.Request.URL.String()).Msg("request failed")
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
