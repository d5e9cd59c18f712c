package config

import (
	"os"
	"testing"
)

// BenchmarkConfig_Validate benchmarks configuration validation
func BenchmarkConfig_Validate(b *testing.B) {
	cfg := &Config{
		HTTPPort:             "8080",
		MaxNotionalPerMarket: 1000,
		MaxInventoryPerToken: 500,
		MaxOpenOrdersTotal:   50,
		MaxOrdersPerMin:      30,
		MaxDailyLoss:         100,
		FeedStaleMs:          5000,
		LoopIntervalMs:       500,
		TakerEdgeThreshold:   0.03,
		StorageMode:          "console",
		DryRun:               true,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}

// BenchmarkConfig_LoadFromEnv benchmarks environment variable loading
func BenchmarkConfig_LoadFromEnv(b *testing.B) {
	os.Setenv("MAX_NOTIONAL_PER_MARKET", "1000")
	os.Setenv("MAKER_HALF_SPREAD", "0.01")
	os.Setenv("STORAGE_MODE", "console")
	defer func() {
		os.Unsetenv("MAX_NOTIONAL_PER_MARKET")
		os.Unsetenv("MAKER_HALF_SPREAD")
		os.Unsetenv("STORAGE_MODE")
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = LoadFromEnv()
	}
}
