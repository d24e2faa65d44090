package server

import (
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/txsession/internal/config"
	"github.com/openkcm/txsession/internal/dbtest/sqlitetest"
	"github.com/openkcm/txsession/pkg/txsession"
	"github.com/openkcm/txsession/pkg/txsession/sqlsession"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseConfig: commoncfg.BaseConfig{
			Application: commoncfg.Application{
				Name:        "test-app",
				Environment: "test",
			},
		},
		HTTP: config.HTTPServer{
			Address: "localhost:8080",
		},
	}
}

func sqliteManager(t *testing.T) *txsession.Manager {
	t.Helper()

	m, err := txsession.NewManager(sqlsession.NewFactory(sqlitetest.Open(t)))
	require.NoError(t, err)
	return m
}
