package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Dispatch.SweepInterval != 20*time.Second {
		t.Errorf("expected sweep interval 20s, got %s", cfg.Dispatch.SweepInterval)
	}
	if cfg.Dispatch.StaleAfter != 20*time.Second {
		t.Errorf("expected stale threshold 20s, got %s", cfg.Dispatch.StaleAfter)
	}
	if cfg.Dispatch.SearchRadius != 2 {
		t.Errorf("expected search radius 2, got %v", cfg.Dispatch.SearchRadius)
	}
	if cfg.Pricing.Granularity != 1000 {
		t.Errorf("expected granularity 1000, got %d", cfg.Pricing.Granularity)
	}
	if cfg.Pricing.PriceBoundPercent != 10 || cfg.Pricing.DeliveryTimePercent != 15 || cfg.Pricing.ArrivalTimePercent != 10 {
		t.Errorf("unexpected pricing bounds: %+v", cfg.Pricing)
	}
	if cfg.Fees.Cancellation.Type != "percentage" || cfg.Fees.Cancellation.Value != 5 {
		t.Errorf("unexpected cancellation fee: %+v", cfg.Fees.Cancellation)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DISPATCH_SWEEP_INTERVAL", "5s")
	t.Setenv("DISPATCH_SEARCH_RADIUS", "3.5")
	t.Setenv("PRICE_GRANULARITY", "500")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CANCELLATION_FEE_TYPE", "amount")
	t.Setenv("CANCELLATION_FEE_VALUE", "5000")

	cfg := Load()

	if cfg.Dispatch.SweepInterval != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.Dispatch.SweepInterval)
	}
	if cfg.Dispatch.SearchRadius != 3.5 {
		t.Errorf("expected 3.5, got %v", cfg.Dispatch.SearchRadius)
	}
	if cfg.Pricing.Granularity != 500 {
		t.Errorf("expected 500, got %d", cfg.Pricing.Granularity)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Fees.Cancellation.Type != "amount" || cfg.Fees.Cancellation.Value != 5000 {
		t.Errorf("unexpected cancellation fee: %+v", cfg.Fees.Cancellation)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DISPATCH_SWEEP_INTERVAL", "soon")
	t.Setenv("DISPATCH_WORKERS", "many")

	cfg := Load()

	if cfg.Dispatch.SweepInterval != 20*time.Second {
		t.Errorf("expected fallback 20s, got %s", cfg.Dispatch.SweepInterval)
	}
	if cfg.Dispatch.Workers != 8 {
		t.Errorf("expected fallback 8 workers, got %d", cfg.Dispatch.Workers)
	}
}

func TestValidate_RejectsUnknownFeeType(t *testing.T) {
	cfg := Load()
	cfg.Fees.Transaction.Type = "ratio"
	cfg.Dispatch.Workers = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
