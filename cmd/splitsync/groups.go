package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type groupsCmd struct{}

func (*groupsCmd) Name() string           { return "groups" }
func (*groupsCmd) Synopsis() string       { return "list your groups" }
func (*groupsCmd) Usage() string          { return "splitsync groups\n" }
func (*groupsCmd) SetFlags(*flag.FlagSet) {}

func (*groupsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	groups := store.Groups()
	if len(groups) == 0 {
		fmt.Println("No groups yet. Create one with create-group or join with join.")
		return subcommands.ExitSuccess
	}
	for _, g := range groups {
		fmt.Printf("%s  %-24s %d members  %d expenses  invite %s\n",
			g.ID, g.Name, len(g.Members), len(store.Expenses(g.ID)), g.InviteCode)
	}
	return subcommands.ExitSuccess
}

type createGroupCmd struct {
	description string
	currency    string
}

func (*createGroupCmd) Name() string     { return "create-group" }
func (*createGroupCmd) Synopsis() string { return "create a group" }
func (*createGroupCmd) Usage() string {
	return `splitsync create-group [-currency USD] [-description <text>] <name>
`
}

func (c *createGroupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "USD", "Default ISO currency of the group.")
	f.StringVar(&c.description, "description", "", "Optional description.")
}

func (c *createGroupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	client, _, err := openClient()
	if err != nil {
		return fail(err)
	}
	g, err := client.CreateGroup(ctx, f.Arg(0), c.description, c.currency)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Created %s (%s), invite code %s\n", g.Name, g.ID, g.InviteCode)
	return subcommands.ExitSuccess
}

type joinCmd struct{}

func (*joinCmd) Name() string           { return "join" }
func (*joinCmd) Synopsis() string       { return "join a group with its invite code" }
func (*joinCmd) Usage() string          { return "splitsync join <invite-code>\n" }
func (*joinCmd) SetFlags(*flag.FlagSet) {}

func (*joinCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	client, _, err := openClient()
	if err != nil {
		return fail(err)
	}
	g, err := client.JoinGroup(ctx, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Joined %s (%d members)\n", g.Name, len(g.Members))
	return subcommands.ExitSuccess
}

type balancesCmd struct {
	group string
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "show balances and suggested settlements" }
func (*balancesCmd) Usage() string {
	return `splitsync balances [-group <id or name>]

  Without -group every group is shown.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.group, "group", "", "Group ID or name.")
}

func (c *balancesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	if c.group != "" {
		g, err := findGroup(store, c.group)
		if err != nil {
			return fail(err)
		}
		renderGroup(os.Stdout, store, g)
		return subcommands.ExitSuccess
	}
	groups := store.Groups()
	if len(groups) == 0 {
		return fail(errors.New("no groups"))
	}
	for _, g := range groups {
		renderGroup(os.Stdout, store, g)
	}
	return subcommands.ExitSuccess
}
