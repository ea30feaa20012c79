// Package controller implements the paginated list/detail HTTP API the
// table layer binds against: GET with limit/offset/ordering and suffixed
// filter parameters, plus POST/PATCH/DELETE for mutations. It serves as the
// reference backend for integration tests and the demo server.
package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Config controls the exposed surface of the reference API.
type Config struct {
	// AccessCheckFunc gates every request: actions are "read", "add",
	// "change", "delete". The default permits everything.
	AccessCheckFunc func(ctx *gin.Context, table, action string) bool

	// Tables whitelists the database tables served by the API. Requests
	// for anything else get a 404.
	Tables []string

	// MaxPageSize caps the limit parameter. Defaults to 250.
	MaxPageSize int

	// ChangeLog records every confirmed field change in the
	// change_records table.
	ChangeLog bool

	// DebugSQL logs the generated statements.
	DebugSQL bool
}

type Controller struct {
	DB     *gorm.DB
	Config *Config
	Log    zerolog.Logger

	exposed map[string]bool
}

func NewController(db *gorm.DB, config *Config, log zerolog.Logger) *Controller {
	if config == nil {
		config = &Config{}
	}

	if config.AccessCheckFunc == nil {
		config.AccessCheckFunc = func(ctx *gin.Context, table, action string) bool {
			return true // default permit all
		}
	}

	if config.MaxPageSize == 0 {
		config.MaxPageSize = 250
	}

	if config.DebugSQL {
		db = db.Debug()
	}

	exposed := make(map[string]bool, len(config.Tables))
	for _, table := range config.Tables {
		exposed[table] = true
	}

	return &Controller{
		DB:      db,
		Config:  config,
		Log:     log,
		exposed: exposed,
	}
}

// Expose adds a table to the served set after construction.
func (c *Controller) Expose(table string) {
	c.exposed[table] = true
	c.Config.Tables = append(c.Config.Tables, table)
}
