// Package contract settles wager outcomes through the external chain runner,
// reached over NATS request/reply on the contract.* subjects.
package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	subjectCancelGame    = "contract.cancelGame"
	subjectDeclareWinner = "contract.declareWinner"
	subjectDeclareDraw   = "contract.declareDraw"
)

// Client implements ports.Settlement against the chain runner. Requests are
// fired at most once per terminal transition; a non-OK reply is a hard
// failure of the calling operation.
type Client struct {
	nc *nats.Conn
}

// Dial connects to the NATS URL with reconnect options.
func Dial(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("wagerchess-orchestrator"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Close() {
	c.nc.Close()
}

type request struct {
	GameID     string `json:"gameId"`
	WalletAddr string `json:"walletAddr,omitempty"`
}

type reply struct {
	Err string `json:"err"`
}

func (c *Client) CancelGame(ctx context.Context, gameID string) error {
	return c.call(ctx, subjectCancelGame, request{GameID: gameID})
}

func (c *Client) DeclareWinner(ctx context.Context, gameID, walletAddr string) error {
	return c.call(ctx, subjectDeclareWinner, request{GameID: gameID, WalletAddr: walletAddr})
}

func (c *Client) DeclareDraw(ctx context.Context, gameID string) error {
	return c.call(ctx, subjectDeclareDraw, request{GameID: gameID})
}

func (c *Client) call(ctx context.Context, subject string, req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", subject, err)
	}
	msg, err := c.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("request %s: %w", subject, err)
	}
	var rep reply
	if err := json.Unmarshal(msg.Data, &rep); err != nil {
		return fmt.Errorf("decode %s reply: %w", subject, err)
	}
	if rep.Err != "" {
		return fmt.Errorf("contract %s: %s", subject, rep.Err)
	}
	return nil
}
