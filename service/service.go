package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tabworks/tabula/client"
	"github.com/tabworks/tabula/model"
	"github.com/tabworks/tabula/utils"
)

// Service owns the shared pieces every table instance draws from: the HTTP
// client, the table-config cache, the render registry and the state store.
type Service struct {
	Client    *client.Client
	Config    *model.Config
	Log       zerolog.Logger
	States    *StateStore
	Renderers *RenderRegistry

	cacheMu     sync.Mutex
	configCache map[string]model.CachedTableConfig
	registered  map[string]*model.TableConfig
}

func NewService(cfg *model.Config, log zerolog.Logger) *Service {
	if cfg == nil {
		cfg = &model.Config{}
	}

	if cfg.ConfigDir == "" {
		cfg.ConfigDir = "config/tabula"
	}

	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = model.DefaultPageSize
	}

	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = 30
	}

	return &Service{
		Client:      client.New(cfg.BaseURL, time.Duration(cfg.RequestTimeoutSeconds)*time.Second, cfg.RequestsPerSecond, log),
		Config:      cfg,
		Log:         log,
		States:      NewStateStore(cfg.Preferences),
		Renderers:   NewRenderRegistry(),
		configCache: make(map[string]model.CachedTableConfig),
		registered:  make(map[string]*model.TableConfig),
	}
}

// RegisterTableConfig installs a table definition programmatically, taking
// precedence over a JSON file of the same name.
func (s *Service) RegisterTableConfig(cfg *model.TableConfig) {
	s.fillTableConfigDefaults(cfg)
	s.cacheMu.Lock()
	s.registered[cfg.TableName] = cfg
	s.cacheMu.Unlock()
}

// LoadTableConfig resolves the definition for tableName, preferring
// registered configs, then ConfigDir/<tableName>.json. File configs are
// cached keyed by modification time so edits are picked up without a
// restart.
func (s *Service) LoadTableConfig(tableName string) (*model.TableConfig, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if cfg, ok := s.registered[tableName]; ok {
		return cfg, nil
	}

	configPath := s.Config.ConfigDir + "/" + tableName + ".json"

	stat, err := os.Stat(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "no table config for %s", tableName)
	}

	if cached, found := s.configCache[tableName]; found && cached.ModTime.Equal(stat.ModTime()) {
		return cached.Config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read table config %s", configPath)
	}

	var cfg model.TableConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse table config %s", configPath)
	}

	cfg.TableName = tableName
	s.fillTableConfigDefaults(&cfg)

	s.configCache[tableName] = model.CachedTableConfig{
		Config:  &cfg,
		ModTime: stat.ModTime(),
	}

	return &cfg, nil
}

func (s *Service) fillTableConfigDefaults(cfg *model.TableConfig) {
	if cfg.PageTitle == "" {
		cfg.PageTitle = utils.TitleFromField(cfg.TableName)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/api/" + cfg.TableName
	}
	if cfg.PrimaryKey == "" {
		cfg.PrimaryKey = "pk"
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = s.Config.DefaultPageSize
	}
	for i := range cfg.Columns {
		if cfg.Columns[i].Title == "" {
			cfg.Columns[i].Title = utils.TitleFromField(cfg.Columns[i].Field)
		}
	}
}

// can consults the configured capability provider. A nil provider permits
// everything.
func (s *Service) can(ctx context.Context, table, action string) bool {
	if s.Config.Capabilities == nil {
		return true
	}
	return s.Config.Capabilities.Can(ctx, table, action)
}

func prefKey(table, name string) string {
	return fmt.Sprintf("tabula.%s.%s", table, name)
}
