package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/txsession/internal/business"
	"github.com/openkcm/txsession/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"txsession API server",
		"txsession API server hosts the posts http API. Each request runs in its own transaction.",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
