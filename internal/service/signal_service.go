package service

import (
	"context"
	"strings"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/util"
	"tradepilot/backend/pkg/advisor"
	"tradepilot/backend/pkg/logger"
)

// SignalService wraps the advisor client and normalizes its output
type SignalService struct {
	client *advisor.Client
	log    *logger.Logger
}

func NewSignalService(client *advisor.Client) *SignalService {
	return &SignalService{
		client: client,
		log:    logger.GetLogger(),
	}
}

// GetSignal fetches a recommendation for a symbol. Unknown signal values
// degrade to hold; confidence is clamped to 0-100.
func (s *SignalService) GetSignal(ctx context.Context, symbol string) (*model.Recommendation, error) {
	sig, err := s.client.GetSignal(ctx, symbol)
	if err != nil {
		return nil, util.ErrTransientIO("Signal request failed", err)
	}

	signal := strings.ToLower(strings.TrimSpace(sig.Signal))
	switch signal {
	case model.SignalBuy, model.SignalSell, model.SignalHold:
	default:
		s.log.Warnf("Advisor returned unknown signal %q for %s, treating as hold", sig.Signal, symbol)
		signal = model.SignalHold
	}

	return &model.Recommendation{
		Symbol:     symbol,
		Signal:     signal,
		Confidence: util.Clamp(sig.Confidence, 0, 100),
		Price:      sig.Price,
		Reason:     sig.Reason,
	}, nil
}
