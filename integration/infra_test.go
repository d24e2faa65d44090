//go:build integration

package integration_test

import (
	"context"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/goccy/go-yaml"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/txsession/internal/config"
	"github.com/openkcm/txsession/internal/dbtest/postgrestest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	PostgresPort   nat.Port
	ConfigFilePath string
	SocketPath     string
	Procdir        string
	Cfg            config.Config

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, cmdName string) (istat infraStat) {
	t.Helper()

	// Since the config is read from the file $PWD/config.yaml,
	// we're running a process in a subdirectory so that we aren't interferring with the other tests.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, cmdName+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = os.WriteFile(istat.ConfigFilePath, []byte(validConfig), fs.ModePerm)
	require.NoError(t, err, "failed to write config file")

	err = commoncfg.LoadConfig(&istat.Cfg, nil, istat.Procdir)
	require.NoError(t, err, "failed to load config")

	istat.SocketPath = filepath.Join(istat.Procdir, cmdName+".sock")
	istat.Cfg.HTTP.Address = "unix://" + istat.SocketPath

	return istat
}

// PreparePostgres starts a migrated database and points the config at it.
func (istat *infraStat) PreparePostgres(t *testing.T) {
	t.Helper()

	pgClient, pgPort, pgTerminate := postgrestest.Start(t.Context())
	pgClient.Close()

	istat.PostgresPort = pgPort
	istat.closeFuncs = append(istat.closeFuncs, pgTerminate)

	istat.Cfg.Database.Name = postgrestest.DBName
	istat.Cfg.Database.SSLMode = postgrestest.DBSSLMode
	istat.Cfg.Database.User = commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBUser}
	istat.Cfg.Database.Password = commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBPassword}
	istat.Cfg.Database.Host = commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBHost}
	istat.Cfg.Database.Port = pgPort.Port()
}

// PrepareConfig writes a config file for running the test into the ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	data, err := yaml.Marshal(istat.Cfg)
	require.NoError(t, err, "failed to encode config")

	err = os.WriteFile(istat.ConfigFilePath, data, fs.ModePerm)
	require.NoError(t, err, "failed to write config")
}

// Command returns the txsession command running sub in the process dir.
func (istat *infraStat) Command(t *testing.T, ctx context.Context, sub string) *exec.Cmd {
	t.Helper()

	currdir, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	cmd := exec.CommandContext(ctx, filepath.Join(currdir, binary), sub)
	cmd.Dir = istat.Procdir

	cmdOutPath := filepath.Join(currdir, sub+".log")
	cmdOut, err := os.Create(cmdOutPath)
	require.NoError(t, err, "failed to create a log file")
	t.Cleanup(func() { _ = cmdOut.Close() })

	cmd.Stdout = cmdOut
	cmd.Stderr = cmdOut
	t.Logf("running %s. Logs will be saved into %s", sub, cmdOutPath)

	return cmd
}

// HTTPClient returns a client talking to the API server socket.
func (istat *infraStat) HTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", istat.SocketPath)
			},
		},
	}
}

func (istat *infraStat) Close(ctx context.Context) {
	os.Remove(istat.ConfigFilePath)
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}
