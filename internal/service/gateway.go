package service

import (
	"context"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/util"
	"tradepilot/backend/pkg/broker"
)

// historyBars is how many daily bars the gateway requests per symbol
const historyBars = 100

// BrokerGateway adapts the broker HTTP client to the MarketGateway interface,
// translating broker failures into the application error taxonomy
type BrokerGateway struct {
	client *broker.Client
}

func NewBrokerGateway(client *broker.Client) *BrokerGateway {
	return &BrokerGateway{client: client}
}

// mapError classifies broker failures: auth rejections mean the session is
// lost, everything else is transient I/O
func mapError(err error) error {
	if broker.IsAuthError(err) {
		return util.ErrSessionLost("Broker session expired or rejected")
	}
	return util.ErrTransientIO("Broker request failed", err)
}

func (g *BrokerGateway) GetAccount(ctx context.Context, mode string) (*model.Account, error) {
	account, err := g.client.GetAccount(ctx, mode)
	if err != nil {
		return nil, mapError(err)
	}
	return &model.Account{
		Equity:        account.Equity,
		BuyingPower:   account.BuyingPower,
		Cash:          account.Cash,
		DayTradeCount: account.DayTradeCount,
	}, nil
}

func (g *BrokerGateway) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	quote, err := g.client.GetQuote(ctx, symbol)
	if err != nil {
		return nil, mapError(err)
	}
	return &model.Quote{
		Symbol:        quote.Symbol,
		Price:         quote.Price,
		Volume:        quote.Volume,
		ChangePercent: quote.ChangePercent,
	}, nil
}

// GetHistory returns the symbol's closing prices, oldest first
func (g *BrokerGateway) GetHistory(ctx context.Context, symbol string) ([]float64, error) {
	bars, err := g.client.GetBars(ctx, symbol, historyBars)
	if err != nil {
		return nil, mapError(err)
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes, nil
}

func (g *BrokerGateway) SubmitOrder(ctx context.Context, intent *model.OrderIntent) (*model.OrderOutcome, error) {
	result, err := g.client.SubmitOrder(ctx, intent.Mode, &broker.OrderRequest{
		Symbol:        intent.Symbol,
		Side:          intent.Side,
		Quantity:      intent.Quantity,
		StopLoss:      intent.StopLoss,
		TakeProfit:    intent.TakeProfit,
		ClientOrderID: intent.ClientOrderID,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &model.OrderOutcome{
		Status:       result.Status,
		FilledPrice:  result.FilledPrice,
		SimulatedPnL: result.SimulatedPnL,
	}, nil
}

func (g *BrokerGateway) HasOpenPosition(ctx context.Context, mode, symbol string) (bool, error) {
	open, err := g.client.HasOpenPosition(ctx, mode, symbol)
	if err != nil {
		return false, mapError(err)
	}
	return open, nil
}
