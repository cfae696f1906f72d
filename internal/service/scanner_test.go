package service

import (
	"context"
	"testing"

	"tradepilot/backend/internal/model"
)

func risingSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestOscillatorRisingSeries(t *testing.T) {
	prices := risingSeries(15, 10, 0.5)

	osc, ok := Oscillator(prices, OscillatorPeriod)
	if !ok {
		t.Fatal("expected oscillator for 15 points with period 14")
	}
	if osc <= 50 {
		t.Errorf("monotonically rising series: oscillator = %.2f, want > 50", osc)
	}

	// An unbroken climb keeps the oscillator saturated at the top
	longer, _ := Oscillator(risingSeries(30, 10, 0.5), OscillatorPeriod)
	if longer < osc {
		t.Errorf("continued climb lowered oscillator: %.2f -> %.2f", osc, longer)
	}
	if longer < 99 {
		t.Errorf("unbroken 30-point climb: oscillator = %.2f, want near 100", longer)
	}
}

func TestOscillatorInsufficientHistory(t *testing.T) {
	if _, ok := Oscillator(risingSeries(14, 10, 0.5), OscillatorPeriod); ok {
		t.Error("period+1 closes are required; 14 points must not produce a value")
	}
	if _, ok := Oscillator(nil, OscillatorPeriod); ok {
		t.Error("empty series must not produce a value")
	}
}

func TestOscillatorFlatAndFalling(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	if osc, ok := Oscillator(flat, OscillatorPeriod); !ok || osc != 50 {
		t.Errorf("flat series: got %.2f (ok=%v), want 50", osc, ok)
	}

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	if osc, ok := Oscillator(falling, OscillatorPeriod); !ok || osc != 0 {
		t.Errorf("monotonic fall: got %.2f (ok=%v), want 0", osc, ok)
	}
}

func TestScanThresholdsAndOrder(t *testing.T) {
	gateway := newMockGateway()

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = 100 - float64(i)*0.5
	}

	// CCC: oscillator qualifies but volume is too thin
	// DDD: volume qualifies but the series is overbought
	// EEE: not enough history
	gateway.quotes["AAA"] = &model.Quote{Symbol: "AAA", Price: 50, Volume: 2_000_000}
	gateway.quotes["BBB"] = &model.Quote{Symbol: "BBB", Price: 80, Volume: 3_000_000}
	gateway.quotes["CCC"] = &model.Quote{Symbol: "CCC", Price: 20, Volume: 100}
	gateway.quotes["DDD"] = &model.Quote{Symbol: "DDD", Price: 10, Volume: 9_000_000}
	gateway.quotes["EEE"] = &model.Quote{Symbol: "EEE", Price: 30, Volume: 9_000_000}
	gateway.history["AAA"] = falling
	gateway.history["BBB"] = falling
	gateway.history["CCC"] = falling
	gateway.history["DDD"] = risingSeries(20, 10, 0.5)
	gateway.history["EEE"] = risingSeries(5, 10, 0.5)

	scanner := NewScanner(gateway)
	cfg := model.ScanConfig{OscillatorThreshold: 40, VolumeThreshold: 1_000_000}

	results := scanner.Scan(context.Background(), []string{"EEE", "BBB", "CCC", "AAA", "DDD"}, cfg)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	// Input order is preserved, never re-sorted by oscillator value
	if results[0].Symbol != "BBB" || results[1].Symbol != "AAA" {
		t.Errorf("got order [%s %s], want [BBB AAA]", results[0].Symbol, results[1].Symbol)
	}
	for _, res := range results {
		if res.Oscillator > cfg.OscillatorThreshold {
			t.Errorf("%s: oscillator %.2f above threshold %.2f", res.Symbol, res.Oscillator, cfg.OscillatorThreshold)
		}
	}
}

func TestScanSkipsFailingQuote(t *testing.T) {
	gateway := newMockGateway()
	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	// ZZZ has no quote configured; the scan must carry on to GOOD
	gateway.quotes["GOOD"] = &model.Quote{Symbol: "GOOD", Price: 50, Volume: 5_000_000}
	gateway.history["GOOD"] = falling

	scanner := NewScanner(gateway)
	results := scanner.Scan(context.Background(), []string{"ZZZ", "GOOD"},
		model.ScanConfig{OscillatorThreshold: 100, VolumeThreshold: 0})

	if len(results) != 1 || results[0].Symbol != "GOOD" {
		t.Fatalf("got %+v, want only GOOD", results)
	}
}
