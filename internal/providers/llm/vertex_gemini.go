package llm

import (
	"context"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

const DefaultModel = "gemini-1.5-flash"

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string

	Temperature     float32
	MaxOutputTokens int32
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = DefaultModel
	}

	return &VertexGemini{
		client:          c,
		modelName:       modelName,
		Temperature:     0.4,
		MaxOutputTokens: 1024,
	}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

// model is built per call since the system instruction carries the guest's
// context.
func (v *VertexGemini) model(system string) *vertexgenai.GenerativeModel {
	m := v.client.GenerativeModel(v.modelName)
	m.SetTemperature(v.Temperature)
	m.SetMaxOutputTokens(v.MaxOutputTokens)
	if system != "" {
		m.SystemInstruction = &vertexgenai.Content{
			Parts: []vertexgenai.Part{vertexgenai.Text(system)},
		}
	}
	return m
}

func (v *VertexGemini) StreamAnswer(ctx context.Context, system, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		it := v.model(system).GenerateContentStream(ctx, vertexgenai.Text(prompt))
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- err
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					t, ok := part.(vertexgenai.Text)
					if !ok || string(t) == "" {
						continue
					}
					select {
					case out <- string(t):
					case <-ctx.Done():
						errs <- ctx.Err()
						return
					}
				}
			}
		}
	}()

	return out, errs
}
