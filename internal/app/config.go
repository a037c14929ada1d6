package app

import (
	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/provider"
)

// policyConfig builds the call policy for one capability from the shared limits and its timeout.
func policyConfig(cfg *config.Config, c provider.Capability) provider.PolicyConfig {
	pc := provider.PolicyConfig{
		RatePerSecond:   cfg.Policy.RatePerSecond,
		Burst:           cfg.Policy.Burst,
		BreakerFailures: cfg.Policy.BreakerFailures,
		BreakerCooldown: cfg.Policy.BreakerCooldown.Duration,
	}
	switch c {
	case provider.CapabilityFace:
		pc.Timeout = cfg.Timeouts.Face.Duration
	case provider.CapabilityTranscription:
		pc.Timeout = cfg.Timeouts.Transcription.Duration
	case provider.CapabilityVideoIndex:
		pc.Timeout = cfg.Timeouts.VideoIndex.Duration
	case provider.CapabilityLLM:
		pc.Timeout = cfg.Timeouts.LLM.Duration
	case provider.CapabilityDocument:
		pc.Timeout = cfg.Timeouts.Document.Duration
	}
	if pc.Timeout <= 0 {
		pc.Timeout = provider.DefaultPolicyConfig().Timeout
	}
	return pc
}
