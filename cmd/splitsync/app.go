package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/mmynk/splitsync/internal/api"
	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/config"
	"github.com/mmynk/splitsync/internal/ledger"
	"github.com/mmynk/splitsync/internal/models"
)

// openClient returns a REST client backed by the token file.
func openClient() (*api.Client, config.Client, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, cfg, err
	}
	return api.NewClient(cfg.APIURL, auth.NewFileTokenStore(cfg.TokenFile)), cfg, nil
}

// openLedger returns a freshly loaded ledger.
func openLedger(ctx context.Context) (*ledger.Store, error) {
	client, _, err := openClient()
	if err != nil {
		return nil, err
	}
	store := ledger.NewStore(client)
	if err := store.Reload(ctx); err != nil {
		if api.IsUnauthenticated(err) {
			return nil, fmt.Errorf("not signed in, run login first")
		}
		return nil, err
	}
	return store, nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "error:", err)
	return subcommands.ExitFailure
}

// resolveMember finds a member of g by ID, email or name.
func resolveMember(g models.Group, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	for _, m := range g.Members {
		if m.ID == ref || strings.EqualFold(m.Email, ref) || strings.EqualFold(m.Name, ref) {
			return m.ID, nil
		}
	}
	return "", fmt.Errorf("%q is not a member of %s", ref, g.Name)
}

func memberName(g models.Group, id string) string {
	for _, m := range g.Members {
		if m.ID == id {
			return m.Name
		}
	}
	return id
}

// findGroup resolves a group by ID or case-insensitive name.
func findGroup(store *ledger.Store, ref string) (models.Group, error) {
	if g, ok := store.Group(ref); ok {
		return g, nil
	}
	for _, g := range store.Groups() {
		if strings.EqualFold(g.Name, ref) {
			return g, nil
		}
	}
	return models.Group{}, fmt.Errorf("no group %q", ref)
}

// renderGroup writes balances and suggested settlements of one group.
func renderGroup(w io.Writer, store *ledger.Store, g models.Group) {
	fmt.Fprintf(w, "%s (%s, invite code %s)\n", g.Name, g.Currency, g.InviteCode)
	for _, b := range store.Balances(g.ID) {
		switch {
		case b.Amount > 0:
			fmt.Fprintf(w, "  %-20s is owed %s\n", memberName(g, b.MemberID), b.Amount.Format(g.Currency))
		case b.Amount < 0:
			fmt.Fprintf(w, "  %-20s owes %s\n", memberName(g, b.MemberID), b.Amount.Abs().Format(g.Currency))
		default:
			fmt.Fprintf(w, "  %-20s is settled up\n", memberName(g, b.MemberID))
		}
	}
	debts := store.SimplifiedDebts(g.ID)
	if len(debts) == 0 {
		return
	}
	fmt.Fprintln(w, "  To settle:")
	for _, d := range debts {
		fmt.Fprintf(w, "    %s pays %s %s\n", memberName(g, d.From), memberName(g, d.To), d.Amount.Format(g.Currency))
	}
}
