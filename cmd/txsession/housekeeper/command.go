package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/txsession/internal/business"
	"github.com/openkcm/txsession/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"txsession Housekeeping job",
		"txsession Housekeeping job periodically prunes posts not updated within the retention.",
		buildInfo,
		cmdutils.RunAsService,
		business.HousekeeperMain,
	)
}
