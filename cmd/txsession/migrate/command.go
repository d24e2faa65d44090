package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/txsession/internal/business"
	"github.com/openkcm/txsession/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"txsession migrations",
		"",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
