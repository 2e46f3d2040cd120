package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	chunks []string
	err    error
}

func (s scripted) StreamAnswer(ctx context.Context, system, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, len(s.chunks))
	errs := make(chan error, 1)
	for _, c := range s.chunks {
		out <- c
	}
	if s.err != nil {
		errs <- s.err
	}
	close(out)
	close(errs)
	return out, errs
}

func (scripted) Close() error { return nil }

func TestCollectJoinsChunks(t *testing.T) {
	got, err := Collect(context.Background(), scripted{chunks: []string{" Breakfast is ", "served until ", "10am. "}}, "", "q")
	require.NoError(t, err)
	assert.Equal(t, "Breakfast is served until 10am.", got)
}

func TestCollectReturnsStreamError(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := Collect(context.Background(), scripted{chunks: []string{"partial"}, err: boom}, "", "q")
	assert.ErrorIs(t, err, boom)
}
