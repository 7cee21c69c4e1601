package settings

import "mercator-hq/saturn/pkg/config"

// Merge returns global with every override in s applied. A nil s returns a
// copy of global.
func Merge(global *config.UpstreamsConfig, s *Settings) config.UpstreamsConfig {
	if s == nil {
		return *global
	}
	return config.UpstreamsConfig{
		LLM:       MergeLLM(global.LLM, s.LLM),
		Embedding: MergeEmbedding(global.Embedding, s.Embedding),
		Rerank:    MergeRerank(global.Rerank, s.Rerank),
		OCR:       MergeOCR(global.OCR, s.OCR),
		MinerU:    MergeMinerU(global.MinerU, s.MinerU),
	}
}

// MergeLLM applies an LLM override.
func MergeLLM(global config.UpstreamConfig, o *UpstreamOverride) config.UpstreamConfig {
	return mergeUpstream(global, o)
}

// MergeRerank applies a rerank override.
func MergeRerank(global config.UpstreamConfig, o *UpstreamOverride) config.UpstreamConfig {
	return mergeUpstream(global, o)
}

// MergeEmbedding applies an embedding override.
func MergeEmbedding(global config.EmbeddingConfig, o *EmbeddingOverride) config.EmbeddingConfig {
	if o == nil {
		return global
	}
	out := global
	out.UpstreamConfig = mergeUpstream(global.UpstreamConfig, &o.UpstreamOverride)
	if o.Dim != nil {
		out.Dim = *o.Dim
	}
	return out
}

// MergeOCR applies a DeepSeek-OCR override.
func MergeOCR(global config.OCRConfig, o *OCROverride) config.OCRConfig {
	if o == nil {
		return global
	}
	out := global
	out.UpstreamConfig = mergeUpstream(global.UpstreamConfig, &o.UpstreamOverride)
	if o.DefaultMode != nil {
		out.DefaultMode = *o.DefaultMode
	}
	if o.DPI != nil {
		out.DPI = *o.DPI
	}
	if o.MaxTokens != nil {
		out.MaxTokens = *o.MaxTokens
	}
	return out
}

// MergeMinerU applies a MinerU override.
func MergeMinerU(global config.MinerUConfig, o *MinerUOverride) config.MinerUConfig {
	if o == nil {
		return global
	}
	out := global
	out.UpstreamConfig = mergeUpstream(global.UpstreamConfig, &o.UpstreamOverride)
	if o.ModelVersion != nil {
		out.ModelVersion = *o.ModelVersion
	}
	if o.PollTimeout != nil {
		out.PollTimeout = o.PollTimeout.Std()
	}
	return out
}

func mergeUpstream(global config.UpstreamConfig, o *UpstreamOverride) config.UpstreamConfig {
	if o == nil {
		return global
	}
	out := global
	if o.BaseURL != nil {
		out.BaseURL = *o.BaseURL
	}
	if o.APIKey != nil {
		out.APIKey = *o.APIKey
	}
	if o.Model != nil {
		out.Model = *o.Model
	}
	if o.Timeout != nil {
		out.Timeout = o.Timeout.Std()
	}
	if o.RequestsPerMinute != nil {
		out.RequestsPerMinute = *o.RequestsPerMinute
	}
	if o.TokensPerMinute != nil {
		out.TokensPerMinute = *o.TokensPerMinute
	}
	if o.MaxConcurrent != nil {
		v := *o.MaxConcurrent
		out.MaxConcurrent = &v
	}
	return out
}
