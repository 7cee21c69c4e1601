package settings

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are the overrides for one tenant. Field names follow the
// settings documents already stored by operators.
type Settings struct {
	TenantID  string             `yaml:"tenant_id" json:"tenant_id"`
	LLM       *UpstreamOverride  `yaml:"llm_config,omitempty" json:"llm_config,omitempty"`
	Embedding *EmbeddingOverride `yaml:"embedding_config,omitempty" json:"embedding_config,omitempty"`
	Rerank    *UpstreamOverride  `yaml:"rerank_config,omitempty" json:"rerank_config,omitempty"`
	OCR       *OCROverride       `yaml:"ds_ocr_config,omitempty" json:"ds_ocr_config,omitempty"`
	MinerU    *MinerUOverride    `yaml:"mineru_config,omitempty" json:"mineru_config,omitempty"`
	CreatedAt time.Time          `yaml:"created_at,omitempty" json:"created_at,omitzero"`
	UpdatedAt time.Time          `yaml:"updated_at,omitempty" json:"updated_at,omitzero"`
}

// UpstreamOverride overrides the fields every upstream has.
type UpstreamOverride struct {
	BaseURL           *string   `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	APIKey            *string   `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Model             *string   `yaml:"model,omitempty" json:"model,omitempty"`
	Timeout           *Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RequestsPerMinute *int      `yaml:"requests_per_minute,omitempty" json:"requests_per_minute,omitempty"`
	TokensPerMinute   *int      `yaml:"tokens_per_minute,omitempty" json:"tokens_per_minute,omitempty"`
	MaxConcurrent     *int      `yaml:"max_concurrent,omitempty" json:"max_concurrent,omitempty"`
}

// EmbeddingOverride overrides embedding settings.
type EmbeddingOverride struct {
	UpstreamOverride `yaml:",inline"`

	Dim *int `yaml:"dim,omitempty" json:"dim,omitempty"`
}

// OCROverride overrides DeepSeek-OCR settings.
type OCROverride struct {
	UpstreamOverride `yaml:",inline"`

	DefaultMode *string `yaml:"default_mode,omitempty" json:"default_mode,omitempty"`
	DPI         *int    `yaml:"dpi,omitempty" json:"dpi,omitempty"`
	MaxTokens   *int    `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// MinerUOverride overrides MinerU settings.
type MinerUOverride struct {
	UpstreamOverride `yaml:",inline"`

	ModelVersion *string   `yaml:"model_version,omitempty" json:"model_version,omitempty"`
	PollTimeout  *Duration `yaml:"poll_timeout,omitempty" json:"poll_timeout,omitempty"`
}

// Duration is a time.Duration that decodes from either a Go duration
// string ("90s") or a number of seconds (90).
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := json.Unmarshal(b, &secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds: %w", err)
	}
	return d.parse(s)
}

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML decodes a duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var secs float64
	if err := node.Decode(&secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}
