package l2binarize

import (
	"testing"

	"github.com/banshee-data/sheet.skeleton/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HalfWindow != 18 {
		t.Errorf("HalfWindow = %d, want 18", cfg.HalfWindow)
	}
	if cfg.KFactor != 0.5 {
		t.Errorf("KFactor = %f, want 0.5", cfg.KFactor)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigFromTuning_Empty(t *testing.T) {
	cfg := ConfigFromTuning(config.EmptyTuningConfig())
	if cfg.VerticalHalfWindow != 0 {
		t.Errorf("VerticalHalfWindow = %d, want 0", cfg.VerticalHalfWindow)
	}
}

func TestConfigBuilders(t *testing.T) {
	cfg := (&Config{}).WithHalfWindow(4).WithVerticalHalfWindow(2).WithKFactor(1.5)
	if cfg.HalfWindow != 4 || cfg.VerticalHalfWindow != 2 || cfg.KFactor != 1.5 {
		t.Errorf("builders not applied: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{HalfWindow: 3, KFactor: 0.2}, false},
		{"negative half window", Config{HalfWindow: -1}, true},
		{"negative vertical window", Config{VerticalHalfWindow: -3}, true},
		{"negative k", Config{KFactor: -0.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
