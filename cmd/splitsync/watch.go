package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/mmynk/splitsync/internal/channel"
	"github.com/mmynk/splitsync/internal/session"
)

type watchCmd struct {
	group string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "show balances and update them live" }
func (*watchCmd) Usage() string {
	return `splitsync watch [-group <id or name>]

  Stays connected to the backend channel and redraws on every change. When
  the channel cannot be restored the ledger is polled instead.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.group, "group", "", "Only show this group.")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	client, cfg, err := openClient()
	if err != nil {
		return fail(err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(client, &channel.WebSocketDialer{URL: cfg.ChannelURL},
		session.WithPollInterval(cfg.PollInterval))
	if err := sess.Resume(ctx); err != nil {
		return fail(err)
	}
	defer sess.Close()

	c.render(sess)
	for {
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case <-sess.Changes():
			c.render(sess)
		}
	}
}

func (c *watchCmd) render(sess *session.Session) {
	store := sess.Store()
	fmt.Print("\033[H\033[2J")

	status := sess.Channel().State().String()
	if sess.Polling() {
		status += ", polling"
	}
	fmt.Printf("splitsync  %s  (updated %s)\n\n", status, store.LastUpdated().Format(time.Kitchen))

	if c.group != "" {
		g, err := findGroup(store, c.group)
		if err != nil {
			fmt.Println(err)
			return
		}
		renderGroup(os.Stdout, store, g)
		return
	}
	for _, g := range store.Groups() {
		renderGroup(os.Stdout, store, g)
		fmt.Println()
	}
	if received, _ := store.FriendRequests(); len(received) > 0 {
		fmt.Printf("%d pending friend requests\n", len(received))
	}
}
