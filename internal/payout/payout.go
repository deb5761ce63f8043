package payout

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Gateway moves withdrawn proceeds to an organizer's external account.
// Transfer is the one point where a withdraw can fail after work has been
// attempted; the caller runs it inside the withdrawal transaction so a
// failed transfer rolls the whole operation back.
type Gateway interface {
	Transfer(ctx context.Context, account string, amount decimal.Decimal) error
}

// LogGateway is a development gateway that records transfers in the log
// instead of moving real funds.
type LogGateway struct{}

func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

func (g *LogGateway) Transfer(ctx context.Context, account string, amount decimal.Decimal) error {
	slog.Info("[Payout] Transfer", "account", account, "amount", amount.String())
	return nil
}
