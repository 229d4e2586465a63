package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type registerCmd struct {
	email    string
	password string
	name     string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account and sign in" }
func (*registerCmd) Usage() string {
	return `splitsync register -email <email> -password <password> -name <name>
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Account email.")
	f.StringVar(&c.password, "password", "", "Password, at least 8 characters.")
	f.StringVar(&c.name, "name", "", "Display name shown to group members.")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" || c.password == "" || c.name == "" {
		return fail(errors.New("-email, -password and -name are required"))
	}
	client, _, err := openClient()
	if err != nil {
		return fail(err)
	}
	user, err := client.Register(ctx, c.email, c.password, c.name)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Signed in as %s (%s)\n", user.Name, user.ID)
	return subcommands.ExitSuccess
}

type loginCmd struct {
	email    string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in and store the credential" }
func (*loginCmd) Usage() string {
	return `splitsync login -email <email> -password <password>
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Account email.")
	f.StringVar(&c.password, "password", "", "Password.")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	client, _, err := openClient()
	if err != nil {
		return fail(err)
	}
	user, err := client.Login(ctx, c.email, c.password)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Signed in as %s (%s)\n", user.Name, user.ID)
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string           { return "logout" }
func (*logoutCmd) Synopsis() string       { return "forget the stored credential" }
func (*logoutCmd) Usage() string          { return "splitsync logout\n" }
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	client, _, err := openClient()
	if err != nil {
		return fail(err)
	}
	if err := client.Logout(ctx); err != nil {
		return fail(err)
	}
	fmt.Println("Signed out")
	return subcommands.ExitSuccess
}
