// Command splitsync is a terminal client for shared expense groups. It keeps
// a local ledger in sync with the backend and can watch it live.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/mmynk/splitsync/pkg/logging"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&registerCmd{}, "account")
	commander.Register(&loginCmd{}, "account")
	commander.Register(&logoutCmd{}, "account")

	commander.Register(&groupsCmd{}, "groups")
	commander.Register(&createGroupCmd{}, "groups")
	commander.Register(&joinCmd{}, "groups")
	commander.Register(&balancesCmd{}, "groups")

	commander.Register(&addExpenseCmd{}, "ledger")
	commander.Register(&settleCmd{}, "ledger")
	commander.Register(&watchCmd{}, "ledger")

	flag.Parse()
	logging.Setup()
	os.Exit(int(commander.Execute(context.Background())))
}
