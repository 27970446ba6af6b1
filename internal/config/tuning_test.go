package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetHalfWindow() != 18 {
		t.Errorf("GetHalfWindow() = %d, want 18", cfg.GetHalfWindow())
	}
	if cfg.GetVerticalHalfWindow() != 0 {
		t.Errorf("GetVerticalHalfWindow() = %d, want 0", cfg.GetVerticalHalfWindow())
	}
	if cfg.GetKFactor() != 0.5 {
		t.Errorf("GetKFactor() = %f, want 0.5", cfg.GetKFactor())
	}
	if cfg.GetMinPointNb() != 3 {
		t.Errorf("GetMinPointNb() = %d, want 3", cfg.GetMinPointNb())
	}
	if cfg.GetMaxBorderAdjacency() != 0.7 {
		t.Errorf("GetMaxBorderAdjacency() = %f, want 0.7", cfg.GetMaxBorderAdjacency())
	}
	if cfg.GetPatchGreyLevel() != 200 {
		t.Errorf("GetPatchGreyLevel() = %d, want 200", cfg.GetPatchGreyLevel())
	}
	if cfg.GetMaxAlignShiftDx() != 0.5 || cfg.GetMaxDoubleBarDx() != 2.0 || cfg.GetMinMeasureWidth() != 2.0 {
		t.Errorf("unexpected measure defaults: %f %f %f",
			cfg.GetMaxAlignShiftDx(), cfg.GetMaxDoubleBarDx(), cfg.GetMinMeasureWidth())
	}
	if cfg.GetMaxExtensionDx() != 0.25 {
		t.Errorf("GetMaxExtensionDx() = %f, want 0.25", cfg.GetMaxExtensionDx())
	}
	if cfg.GetWorkers() != 4 {
		t.Errorf("GetWorkers() = %d, want 4", cfg.GetWorkers())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "half_window": 10,
  "k_factor": 1.25,
  "patch_grey_level": 127,
  "max_double_bar_dx": 3
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetHalfWindow() != 10 {
		t.Errorf("GetHalfWindow() = %d, want 10", cfg.GetHalfWindow())
	}
	if cfg.GetKFactor() != 1.25 {
		t.Errorf("GetKFactor() = %f, want 1.25", cfg.GetKFactor())
	}
	if cfg.GetPatchGreyLevel() != 127 {
		t.Errorf("GetPatchGreyLevel() = %d, want 127", cfg.GetPatchGreyLevel())
	}
	if cfg.GetMaxDoubleBarDx() != 3 {
		t.Errorf("GetMaxDoubleBarDx() = %f, want 3", cfg.GetMaxDoubleBarDx())
	}
	// Omitted fields fall back to defaults.
	if cfg.GetMinPointNb() != 3 {
		t.Errorf("GetMinPointNb() = %d, want default 3", cfg.GetMinPointNb())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	if _, err := LoadTuningConfig("/nonexistent/path/to/config.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigWrongExtension(t *testing.T) {
	_, err := LoadTuningConfig("tuning.yaml")
	if err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("expected extension error, got %v", err)
	}
}

func TestParseTuningConfigInvalidJSON(t *testing.T) {
	if _, err := ParseTuningConfig([]byte(`{"k_factor": "high"`)); err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr string
	}{
		{"empty is valid", &TuningConfig{}, ""},
		{"negative half window", &TuningConfig{HalfWindow: ptrInt(-1)}, "half_window"},
		{"negative k", &TuningConfig{KFactor: ptrFloat64(-0.1)}, "k_factor"},
		{"ratio below one", &TuningConfig{MaxLengthRatio: ptrFloat64(0.5)}, "max_length_ratio"},
		{"ratio zero disables", &TuningConfig{MaxLengthRatio: ptrFloat64(0)}, ""},
		{"too few points", &TuningConfig{MinPointNb: ptrInt(1)}, "min_point_nb"},
		{"adjacency above one", &TuningConfig{MaxBorderAdjacency: ptrFloat64(1.5)}, "max_border_adjacency"},
		{"patch equals background", &TuningConfig{PatchGreyLevel: ptrInt(255)}, "patch_grey_level"},
		{"patch equals foreground", &TuningConfig{PatchGreyLevel: ptrInt(0)}, "patch_grey_level"},
		{"negative shift", &TuningConfig{MaxAlignShiftDx: ptrFloat64(-1)}, "max_align_shift_dx"},
		{"negative extension", &TuningConfig{MaxExtensionDx: ptrFloat64(-1)}, "max_extension_dx"},
		{"negative workers", &TuningConfig{Workers: ptrInt(-2)}, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.HalfWindow == nil || cfg.KFactor == nil || cfg.PatchGreyLevel == nil {
		t.Fatal("defaults file should set every binarization and patch field explicitly")
	}
	if cfg.GetPatchGreyLevel() != 200 {
		t.Errorf("defaults file patch_grey_level = %d, want 200", cfg.GetPatchGreyLevel())
	}
}
