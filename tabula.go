package tabula

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tabworks/tabula/controller"
	"github.com/tabworks/tabula/model"
	"github.com/tabworks/tabula/service"
)

// NewClient builds the table-binding service: per-table configs from
// cfg.ConfigDir, fetches against cfg.BaseURL. Open individual tables with
// OpenTable on the returned service.
func NewClient(cfg *model.Config, log zerolog.Logger) *service.Service {
	return service.NewService(cfg, log)
}

// NewServer mounts the reference list/detail API on r and returns its
// controller. The API serves the pagination envelope and the filter suffix
// grammar the client side composes against.
func NewServer(r *gin.Engine, db *gorm.DB, cfg *controller.Config, log zerolog.Logger) *controller.Controller {
	c := controller.NewController(db, cfg, log)
	controller.RegisterRoutes(r, c)
	return c
}
