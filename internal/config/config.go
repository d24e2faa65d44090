// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	Database    Database    `yaml:"database"`
	Session     Session     `yaml:"session"`
	Housekeeper Housekeeper `yaml:"housekeeper"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	SSLMode  string              `yaml:"sslMode"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

// Session configures the sessions handed out to each unit of work.
type Session struct {
	Backend        Backend        `yaml:"backend" default:"pgx"`
	IsolationLevel IsolationLevel `yaml:"isolationLevel" default:"read committed"`
	ReadOnly       bool           `yaml:"readOnly"`
}

// Housekeeper configures the periodic pruning of stale posts. Each run is
// one unit of work.
type Housekeeper struct {
	TriggerInterval time.Duration `yaml:"triggerInterval" default:"1h"`
	PostRetention   time.Duration `yaml:"postRetention" default:"720h"`
}
