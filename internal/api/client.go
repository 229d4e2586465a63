// Package api is the client of the backend REST surface. Every call carries
// the stored bearer credential; non-2xx responses become *connect.Error
// values whose code is derived from the HTTP status and whose message is the
// backend's error text.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/wire"
)

const defaultTimeout = 15 * time.Second

// Client talks to the backend at a base URL such as http://localhost:3000/api.
type Client struct {
	baseURL string
	tokens  auth.TokenStore
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client. Tokens returned by Register and Login are
// written to tokens.
func NewClient(baseURL string, tokens auth.TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the credential store used by the client.
func (c *Client) Tokens() auth.TokenStore {
	return c.tokens
}

// Register creates an account and stores the returned credential.
func (c *Client) Register(ctx context.Context, email, password, name string) (models.Member, error) {
	var resp wire.AuthResponse
	req := wire.RegisterRequest{Email: email, Password: password, Name: name}
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return models.Member{}, err
	}
	return c.storeSession(ctx, resp)
}

// Login signs in and stores the returned credential.
func (c *Client) Login(ctx context.Context, email, password string) (models.Member, error) {
	var resp wire.AuthResponse
	req := wire.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return models.Member{}, err
	}
	return c.storeSession(ctx, resp)
}

func (c *Client) storeSession(ctx context.Context, resp wire.AuthResponse) (models.Member, error) {
	if resp.Token == "" {
		return models.Member{}, connect.NewError(connect.CodeInternal, errors.New("backend returned no token"))
	}
	if err := c.tokens.SetToken(ctx, resp.Token); err != nil {
		return models.Member{}, fmt.Errorf("failed to store token: %w", err)
	}
	return resp.User.ToModel(), nil
}

// Logout forgets the stored credential.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Clear(ctx)
}

// Groups lists the groups of the signed-in user. Records the backend sends
// without an id are dropped.
func (c *Client) Groups(ctx context.Context) ([]models.Group, error) {
	var resp wire.GroupsResponse
	if err := c.do(ctx, http.MethodGet, "/groups", nil, &resp); err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		group, err := g.ToModel()
		if err != nil {
			c.logger.Warn("Skipping invalid group", "error", err)
			continue
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Group fetches one group with its members.
func (c *Client) Group(ctx context.Context, id string) (models.Group, error) {
	var resp wire.GroupResponse
	if err := c.do(ctx, http.MethodGet, "/groups/"+url.PathEscape(id), nil, &resp); err != nil {
		return models.Group{}, err
	}
	return resp.Group.ToModel()
}

// CreateGroup creates a group with the caller as its first member.
func (c *Client) CreateGroup(ctx context.Context, name, description, currency string) (models.Group, error) {
	var resp wire.GroupResponse
	req := wire.CreateGroupRequest{Name: name, Description: description, Currency: currency}
	if err := c.do(ctx, http.MethodPost, "/groups", req, &resp); err != nil {
		return models.Group{}, err
	}
	return resp.Group.ToModel()
}

// JoinGroup adds the caller to the group owning inviteCode.
func (c *Client) JoinGroup(ctx context.Context, inviteCode string) (models.Group, error) {
	var resp wire.GroupResponse
	req := wire.JoinGroupRequest{InviteCode: inviteCode}
	if err := c.do(ctx, http.MethodPost, "/groups/join", req, &resp); err != nil {
		return models.Group{}, err
	}
	return resp.Group.ToModel()
}

// GroupExpenses lists the expenses of a group.
func (c *Client) GroupExpenses(ctx context.Context, groupID string) ([]models.Expense, error) {
	var resp wire.ExpensesResponse
	if err := c.do(ctx, http.MethodGet, "/expenses/group/"+url.PathEscape(groupID), nil, &resp); err != nil {
		return nil, err
	}
	expenses := make([]models.Expense, 0, len(resp.Expenses))
	for _, e := range resp.Expenses {
		expense, err := e.ToModel()
		if err != nil {
			c.logger.Warn("Skipping invalid expense", "group_id", groupID, "error", err)
			continue
		}
		expenses = append(expenses, expense)
	}
	return expenses, nil
}

// CreateExpense records an expense. The ID and CreatedAt of e are ignored;
// the stored record is returned.
func (c *Client) CreateExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	splits := make([]wire.Split, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = wire.Split{UserID: s.MemberID, Amount: wire.NewDecimal(s.Amount), Percentage: s.Percentage}
	}
	req := wire.CreateExpenseRequest{
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      wire.NewDecimal(e.Amount),
		Currency:    e.Currency,
		PaidBy:      e.PaidBy,
		SplitType:   string(e.SplitKind),
		Category:    string(e.Category),
		Date:        e.Date,
		Notes:       e.Notes,
		Splits:      splits,
	}

	var resp wire.ExpenseResponse
	if err := c.do(ctx, http.MethodPost, "/expenses", req, &resp); err != nil {
		return models.Expense{}, err
	}
	return resp.Expense.ToModel()
}

// DeleteExpense removes an expense.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil)
}

// GroupSettlements lists the settlements of a group.
func (c *Client) GroupSettlements(ctx context.Context, groupID string) ([]models.Settlement, error) {
	var resp wire.SettlementsResponse
	if err := c.do(ctx, http.MethodGet, "/settlements/group/"+url.PathEscape(groupID), nil, &resp); err != nil {
		return nil, err
	}
	settlements := make([]models.Settlement, 0, len(resp.Settlements))
	for _, s := range resp.Settlements {
		settlement, err := s.ToModel()
		if err != nil {
			c.logger.Warn("Skipping invalid settlement", "group_id", groupID, "error", err)
			continue
		}
		settlements = append(settlements, settlement)
	}
	return settlements, nil
}

// CreateSettlement records a payment between two members.
func (c *Client) CreateSettlement(ctx context.Context, s models.Settlement) (models.Settlement, error) {
	req := wire.CreateSettlementRequest{
		GroupID:  s.GroupID,
		FromUser: s.From,
		ToUser:   s.To,
		Amount:   wire.NewDecimal(s.Amount),
		Currency: s.Currency,
		Date:     s.Date,
		Notes:    s.Notes,
	}

	var resp wire.SettlementResponse
	if err := c.do(ctx, http.MethodPost, "/settlements", req, &resp); err != nil {
		return models.Settlement{}, err
	}
	return resp.Settlement.ToModel()
}

// DeleteSettlement removes a settlement.
func (c *Client) DeleteSettlement(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/settlements/"+url.PathEscape(id), nil, nil)
}

// Friends lists the caller's friends.
func (c *Client) Friends(ctx context.Context) ([]models.Friend, error) {
	var resp wire.FriendsResponse
	if err := c.do(ctx, http.MethodGet, "/friends", nil, &resp); err != nil {
		return nil, err
	}
	friends := make([]models.Friend, len(resp.Friends))
	for i, f := range resp.Friends {
		friends[i] = f.ToModel()
	}
	return friends, nil
}

// FriendRequests lists pending requests received by and sent by the caller.
func (c *Client) FriendRequests(ctx context.Context) (received, sent []models.FriendRequest, err error) {
	var resp wire.FriendRequestsResponse
	if err := c.do(ctx, http.MethodGet, "/friend-requests", nil, &resp); err != nil {
		return nil, nil, err
	}
	received = make([]models.FriendRequest, len(resp.Received))
	for i, r := range resp.Received {
		received[i] = r.ToModel()
	}
	sent = make([]models.FriendRequest, len(resp.Sent))
	for i, r := range resp.Sent {
		sent[i] = r.ToModel()
	}
	return received, sent, nil
}

// SendFriendRequest invites another user.
func (c *Client) SendFriendRequest(ctx context.Context, toUserID string) (models.FriendRequest, error) {
	var resp wire.FriendRequestResponse
	req := wire.SendFriendRequestRequest{ToUserID: toUserID}
	if err := c.do(ctx, http.MethodPost, "/friend-requests", req, &resp); err != nil {
		return models.FriendRequest{}, err
	}
	return resp.Request.ToModel(), nil
}

// AcceptFriendRequest accepts a received request.
func (c *Client) AcceptFriendRequest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/friend-requests/"+url.PathEscape(id)+"/accept", nil, nil)
}

// do sends one JSON request. in and out may be nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("API request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return connect.NewError(connect.CodeUnavailable, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return connect.NewError(connect.CodeInternal, fmt.Errorf("failed to decode %s %s response: %w", method, path, err))
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := http.StatusText(resp.StatusCode)
	var body wire.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return connect.NewError(codeForStatus(resp.StatusCode), errors.New(msg))
}
