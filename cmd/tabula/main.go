package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tabworks/tabula"
	"github.com/tabworks/tabula/config"
	"github.com/tabworks/tabula/controller"
	"github.com/tabworks/tabula/logger"
	"github.com/tabworks/tabula/model"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "tabula",
		Short:         "Remote-data table binding over a paginated REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "tabula.json", "path to the config file")

	root.AddCommand(serveCmd(), fetchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadApp() (*config.AppConfig, error) {
	return config.Load(configPath)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reference list/detail API with the demo inventory schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}

			log := logger.New(logger.Config{
				LogLevel:     app.Log.Level,
				LogFilePath:  app.Log.File,
				LogFileSize:  app.Log.FileSize,
				LogFileCount: app.Log.Count,
				LogCompress:  app.Log.Compress,
			})

			db, err := gorm.Open(sqlite.Open(app.Server.DatabasePath), &gorm.Config{})
			if err != nil {
				return err
			}

			if err := controller.MigrateDemo(db); err != nil {
				return err
			}
			if app.Server.SeedDemo {
				if err := controller.SeedDemo(db); err != nil {
					return err
				}
			}

			gin.SetMode(gin.ReleaseMode)
			r := gin.New()
			r.Use(gin.Recovery())

			tabula.NewServer(r, db, &controller.Config{
				Tables:    controller.DemoTables(),
				ChangeLog: app.Server.ChangeLog,
				DebugSQL:  app.Server.DebugSQL,
			}, log)

			log.Info().Str("addr", app.Server.Addr).Str("db", app.Server.DatabasePath).Msg("serving")
			return r.Run(app.Server.Addr)
		},
	}
}

func fetchCmd() *cobra.Command {
	var (
		filters  []string
		page     int
		pageSize int
		sortCol  string
		desc     bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <table>",
		Short: "Fetch one page of a remote table and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}

			log := logger.New(logger.Config{LogLevel: app.Log.Level})

			svc := tabula.NewClient(&model.Config{
				ConfigDir:             app.Client.ConfigDir,
				BaseURL:               app.Client.BaseURL,
				DefaultPageSize:       app.Client.PageSize,
				RequestTimeoutSeconds: app.Client.TimeoutSeconds,
				RequestsPerSecond:     app.Client.RequestsPerSecond,
			}, log)

			t, err := svc.OpenTable(args[0])
			if err != nil {
				return err
			}
			defer t.Close()

			parsed, err := parseFilters(filters)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if pageSize > 0 {
				if err := t.SetPageSize(ctx, pageSize); err != nil {
					return err
				}
			}
			if sortCol != "" {
				if err := t.SetSort(ctx, sortCol, desc); err != nil {
					return err
				}
			}
			if page > 1 {
				if err := t.SetPage(ctx, page); err != nil {
					return err
				}
			}

			if len(parsed) > 0 {
				if err := t.SetFilters(ctx, parsed); err != nil {
					return err
				}
			} else if t.Page() == nil {
				if _, err := t.Fetch(ctx); err != nil {
					return err
				}
			}

			fmt.Print(svc.Renderers.RenderText(t.Config(), t.State(), t.Page()))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&filters, "filter", nil, "filter as name=operator=value, repeatable")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "records per page")
	cmd.Flags().StringVar(&sortCol, "sort", "", "sort column")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

// parseFilters turns repeated name=operator=value flags into active
// filters. The value may itself contain '='.
func parseFilters(raw []string) (map[string]model.ActiveFilter, error) {
	out := make(map[string]model.ActiveFilter, len(raw))
	for _, entry := range raw {
		parts := strings.SplitN(entry, "=", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed filter %q, want name=operator=value", entry)
		}
		out[parts[0]] = model.ActiveFilter{Operator: parts[1], Value: parts[2]}
	}
	return out, nil
}
