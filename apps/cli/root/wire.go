package root

import (
	draftcmd "github.com/zenGate-Global/palmyra-reports/apps/cli/cmd/draft"
	migratecmd "github.com/zenGate-Global/palmyra-reports/apps/cli/cmd/migrate"
	schedulescmd "github.com/zenGate-Global/palmyra-reports/apps/cli/cmd/schedules"
	sessioncmd "github.com/zenGate-Global/palmyra-reports/apps/cli/cmd/session"
)

func init() {
	if err := env.Bind(Root()); err != nil {
		panic(err)
	}

	Root().AddCommand(sessioncmd.Command(env))
	Root().AddCommand(draftcmd.Command(env))
	Root().AddCommand(schedulescmd.Command(env))
	Root().AddCommand(migratecmd.Command(env))
}
