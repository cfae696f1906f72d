package model

import (
	"reflect"
	"testing"
)

func TestWinRateDerived(t *testing.T) {
	tests := []struct {
		name  string
		wins  int
		total int
		want  float64
	}{
		{"no trades", 0, 0, 0},
		{"all wins", 5, 5, 100},
		{"half", 2, 4, 50},
		{"one of three", 1, 3, 100.0 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := Bot{WinningTrades: tt.wins, TotalTrades: tt.total}
			got := bot.WinRate()
			if got != tt.want {
				t.Errorf("WinRate() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("WinRate() = %v out of [0,100]", got)
			}
		})
	}
}

func TestNormalizeSymbols(t *testing.T) {
	bot := Bot{Symbols: []string{" aapl", "MSFT", "aapl", "", "msft ", "tsla"}}
	bot.NormalizeSymbols()

	want := []string{"AAPL", "MSFT", "TSLA"}
	if !reflect.DeepEqual(bot.Symbols, want) {
		t.Errorf("Symbols = %v, want %v", bot.Symbols, want)
	}
}

func TestValidStrategy(t *testing.T) {
	for _, s := range []string{
		StrategyMomentum, StrategyMeanReversion, StrategyTrendFollowing,
		StrategyBuyLowSellHigh, StrategyReinforcement, StrategyScalping,
	} {
		if !ValidStrategy(s) {
			t.Errorf("ValidStrategy(%q) = false", s)
		}
	}
	if ValidStrategy("martingale") {
		t.Error("unknown strategy accepted")
	}
}
