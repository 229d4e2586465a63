package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/mmynk/splitsync/internal/calculator"
	"github.com/mmynk/splitsync/internal/models"
)

type addExpenseCmd struct {
	group       string
	description string
	amount      string
	currency    string
	paidBy      string
	split       string
	members     string
	shares      string
	category    string
	date        string
	notes       string
}

func (*addExpenseCmd) Name() string     { return "add-expense" }
func (*addExpenseCmd) Synopsis() string { return "record an expense in a group" }
func (*addExpenseCmd) Usage() string {
	return `splitsync add-expense -group <group> -desc <text> -amount 90.00 [options]

  Equal splits divide the amount among -members (default: everyone).
  Percentage and exact splits take -shares as member=value pairs:

    -split percentage -shares "alice=50,bob=30,carol=20"
    -split exact -shares "alice=40.00,bob=50.00"

  Members can be given by ID, email or name.
`
}

func (c *addExpenseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.group, "group", "", "Group ID or name.")
	f.StringVar(&c.description, "desc", "", "What the expense was for.")
	f.StringVar(&c.amount, "amount", "", "Total amount, e.g. 90.00.")
	f.StringVar(&c.currency, "currency", "", "ISO currency (defaults to the group's).")
	f.StringVar(&c.paidBy, "paid-by", "", "Payer (defaults to you).")
	f.StringVar(&c.split, "split", "equal", "Split kind: equal, percentage or exact.")
	f.StringVar(&c.members, "members", "", "Comma separated participants of an equal split.")
	f.StringVar(&c.shares, "shares", "", "member=value pairs for percentage and exact splits.")
	f.StringVar(&c.category, "category", "", "Optional category.")
	f.StringVar(&c.date, "date", time.Now().Format("2006-01-02"), "Date of the expense (YYYY-MM-DD).")
	f.StringVar(&c.notes, "notes", "", "Optional notes.")
}

func (c *addExpenseCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.group == "" || c.description == "" || c.amount == "" {
		return fail(errors.New("-group, -desc and -amount are required"))
	}
	store, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	g, err := findGroup(store, c.group)
	if err != nil {
		return fail(err)
	}

	expense, err := c.build(g)
	if err != nil {
		return fail(err)
	}
	created, err := store.AddExpense(ctx, expense)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Added %q for %s\n", created.Description, created.Amount.Format(created.Currency))
	for _, s := range created.Splits {
		fmt.Printf("  %-20s %s\n", memberName(g, s.MemberID), s.Amount.Format(created.Currency))
	}
	return subcommands.ExitSuccess
}

func (c *addExpenseCmd) build(g models.Group) (models.Expense, error) {
	amount, err := models.ParseAmount(c.amount)
	if err != nil {
		return models.Expense{}, err
	}
	kind, err := models.ParseSplitKind(c.split)
	if err != nil {
		return models.Expense{}, err
	}

	var paidBy string
	if c.paidBy != "" {
		if paidBy, err = resolveMember(g, c.paidBy); err != nil {
			return models.Expense{}, err
		}
	}

	var members []string
	var shares []calculator.Share
	if kind == models.SplitEqual {
		members, err = equalMembers(g, c.members)
	} else {
		shares, err = parseShares(g, kind, c.shares)
	}
	if err != nil {
		return models.Expense{}, err
	}

	splits, err := calculator.CalculateSplits(amount, kind, members, shares)
	if err != nil {
		return models.Expense{}, err
	}
	return models.Expense{
		GroupID:     g.ID,
		Description: c.description,
		Amount:      amount,
		Currency:    strings.ToUpper(c.currency),
		PaidBy:      paidBy,
		SplitKind:   kind,
		Splits:      splits,
		Category:    models.Category(c.category),
		Date:        c.date,
		Notes:       c.notes,
	}, nil
}

func equalMembers(g models.Group, list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		ids := make([]string, len(g.Members))
		for i, m := range g.Members {
			ids[i] = m.ID
		}
		return ids, nil
	}
	var ids []string
	for _, ref := range strings.Split(list, ",") {
		id, err := resolveMember(g, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseShares reads "member=value" pairs. Values are percentages for
// percentage splits and amounts for exact splits.
func parseShares(g models.Group, kind models.SplitKind, list string) ([]calculator.Share, error) {
	if strings.TrimSpace(list) == "" {
		return nil, fmt.Errorf("-shares is required for %s splits", kind)
	}
	var shares []calculator.Share
	for _, pair := range strings.Split(list, ",") {
		ref, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid share %q, want member=value", pair)
		}
		id, err := resolveMember(g, ref)
		if err != nil {
			return nil, err
		}
		share := calculator.Share{MemberID: id}
		value = strings.TrimSpace(value)
		if kind == models.SplitPercentage {
			if share.Percentage, err = strconv.ParseFloat(value, 64); err != nil {
				return nil, fmt.Errorf("invalid percentage %q: %w", value, err)
			}
		} else if share.Amount, err = models.ParseAmount(value); err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	return shares, nil
}

type settleCmd struct {
	group  string
	from   string
	to     string
	amount string
	notes  string
}

func (*settleCmd) Name() string     { return "settle" }
func (*settleCmd) Synopsis() string { return "record a payment between two members" }
func (*settleCmd) Usage() string {
	return `splitsync settle -group <group> -to <member> -amount 45.00 [-from <member>]

  The payer defaults to you.
`
}

func (c *settleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.group, "group", "", "Group ID or name.")
	f.StringVar(&c.from, "from", "", "Member who paid (defaults to you).")
	f.StringVar(&c.to, "to", "", "Member who received the payment.")
	f.StringVar(&c.amount, "amount", "", "Amount paid.")
	f.StringVar(&c.notes, "notes", "", "Optional notes.")
}

func (c *settleCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.group == "" || c.to == "" || c.amount == "" {
		return fail(errors.New("-group, -to and -amount are required"))
	}
	store, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	g, err := findGroup(store, c.group)
	if err != nil {
		return fail(err)
	}

	amount, err := models.ParseAmount(c.amount)
	if err != nil {
		return fail(err)
	}
	to, err := resolveMember(g, c.to)
	if err != nil {
		return fail(err)
	}
	var from string
	if c.from != "" {
		if from, err = resolveMember(g, c.from); err != nil {
			return fail(err)
		}
	}

	created, err := store.AddSettlement(ctx, models.Settlement{
		GroupID: g.ID,
		From:    from,
		To:      to,
		Amount:  amount,
		Date:    time.Now().Format("2006-01-02"),
		Notes:   c.notes,
	})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("%s paid %s %s\n", memberName(g, created.From), memberName(g, created.To), created.Amount.Format(created.Currency))
	return subcommands.ExitSuccess
}
