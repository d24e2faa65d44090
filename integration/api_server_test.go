//go:build integration

package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/txsession/internal/config"
)

type postResponse struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func TestAPIServer(t *testing.T) {
	const cmdName = "api-server"

	for _, backend := range []config.Backend{config.BackendPGX, config.BackendSQL, config.BackendGORM} {
		t.Run(string(backend), func(t *testing.T) {
			ctx := t.Context()

			istat := initInfra(t, cmdName)
			defer istat.Close(ctx)

			istat.PreparePostgres(t)
			istat.Cfg.Session.Backend = backend
			istat.PrepareConfig(t)

			cmd := istat.Command(t, ctx, cmdName)
			require.NoError(t, cmd.Start(), "could not start command")
			// graceful stop so that coverprofiles are written
			defer func() {
				_ = syscall.Kill(cmd.Process.Pid, syscall.SIGTERM)
				_ = cmd.Wait()
			}()

			client := istat.HTTPClient()

			// give the server some time to start before running the test
			var err error
			for range 100 {
				var resp *http.Response
				resp, err = client.Get("http://txsession/ping")
				if err == nil {
					resp.Body.Close()
					break
				}
				time.Sleep(100 * time.Millisecond)
			}
			require.NoError(t, err, "could not connect to server")

			body := fmt.Sprintf(`{"title":"integration-%s","content":"hello"}`, backend)

			resp, err := client.Post("http://txsession/posts", "application/json", strings.NewReader(body))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusCreated, resp.StatusCode)

			var created postResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

			resp, err = client.Get(fmt.Sprintf("http://txsession/posts/%d", created.ID))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode, "created post must be committed")

			resp, err = client.Post("http://txsession/posts", "application/json", strings.NewReader(body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusConflict, resp.StatusCode)
		})
	}
}
