package settings

import (
	"testing"
	"time"

	"mercator-hq/saturn/pkg/config"
)

func ptr[T any](v T) *T { return &v }

func TestMerge_NilSettings(t *testing.T) {
	global := config.Default().Upstreams
	merged := Merge(&global, nil)

	if merged.LLM.Model != global.LLM.Model {
		t.Errorf("Expected model %q, got %q", global.LLM.Model, merged.LLM.Model)
	}
}

func TestMerge_OverridesWin(t *testing.T) {
	global := config.Default().Upstreams
	s := &Settings{
		TenantID: "acme",
		LLM: &UpstreamOverride{
			Model:             ptr("tenant-model"),
			RequestsPerMinute: ptr(10),
			MaxConcurrent:     ptr(3),
			Timeout:           ptr(Duration(5 * time.Second)),
		},
		Embedding: &EmbeddingOverride{Dim: ptr(768)},
		OCR: &OCROverride{
			UpstreamOverride: UpstreamOverride{APIKey: ptr("ocr-key")},
			DPI:              ptr(300),
		},
		MinerU: &MinerUOverride{ModelVersion: ptr("pipeline")},
	}

	merged := Merge(&global, s)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"llm model", merged.LLM.Model, "tenant-model"},
		{"llm rpm", merged.LLM.RequestsPerMinute, 10},
		{"llm tpm untouched", merged.LLM.TokensPerMinute, global.LLM.TokensPerMinute},
		{"llm timeout", merged.LLM.Timeout, 5 * time.Second},
		{"embedding dim", merged.Embedding.Dim, 768},
		{"embedding model untouched", merged.Embedding.Model, global.Embedding.Model},
		{"ocr api key", merged.OCR.APIKey, "ocr-key"},
		{"ocr dpi", merged.OCR.DPI, 300},
		{"ocr mode untouched", merged.OCR.DefaultMode, global.OCR.DefaultMode},
		{"mineru version", merged.MinerU.ModelVersion, "pipeline"},
		{"rerank untouched", merged.Rerank.Model, global.Rerank.Model},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, tt.got)
			}
		})
	}

	if merged.LLM.MaxConcurrent == nil || *merged.LLM.MaxConcurrent != 3 {
		t.Fatalf("Expected max_concurrent 3, got %v", merged.LLM.MaxConcurrent)
	}
	*s.LLM.MaxConcurrent = 99
	if *merged.LLM.MaxConcurrent != 3 {
		t.Error("Expected merged max_concurrent to be independent of the override")
	}
	if global.LLM.Model == "tenant-model" {
		t.Error("Expected global config to be unchanged")
	}
}
