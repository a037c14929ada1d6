// Package transcribe holds helpers shared by the transcription adapters.
package transcribe

import (
	"context"
	"time"
)

const DefaultPollInterval = 2 * time.Second

// Poll calls check until it reports done, returns an error, or ctx ends.
func Poll(ctx context.Context, interval time.Duration, check func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// NormalizeSentiment maps provider labels onto positive, negative, neutral or unknown.
func NormalizeSentiment(s string) string {
	switch s {
	case "positive", "POSITIVE", "Positive":
		return "positive"
	case "negative", "NEGATIVE", "Negative":
		return "negative"
	case "neutral", "NEUTRAL", "Neutral", "mixed", "MIXED":
		return "neutral"
	default:
		return "unknown"
	}
}
