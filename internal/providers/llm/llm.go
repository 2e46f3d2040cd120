package llm

import (
	"context"
	"strings"
)

type Provider interface {
	// StreamAnswer returns a stream of text chunks (incremental).
	StreamAnswer(ctx context.Context, system, prompt string) (chunks <-chan string, errs <-chan error)
	Close() error
}

// Collect drains a streamed answer into one string. A stream error wins
// over partial text.
func Collect(ctx context.Context, p Provider, system, prompt string) (string, error) {
	chunks, errs := p.StreamAnswer(ctx, system, prompt)

	var sb strings.Builder
	for chunks != nil || errs != nil {
		select {
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			sb.WriteString(c)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return "", err
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
