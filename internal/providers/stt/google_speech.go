package stt

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

// NewGoogleSpeech defaults to OGG/Opus at 48kHz, the format chat apps use
// for voice notes.
func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_OGG_OPUS,
		SampleRateHz: 48000,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// language example: "en-US", "id-ID"
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if language == "" {
		language = "en-US"
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}

	return bestTranscript(resp.Results)
}

// bestTranscript joins the top alternative of every result; long notes come
// back split into several results.
func bestTranscript(results []*speechpb.SpeechRecognitionResult) (string, float64, error) {
	var text string
	var confSum float64
	n := 0
	for _, r := range results {
		if len(r.Alternatives) == 0 || r.Alternatives[0].Transcript == "" {
			continue
		}
		alt := r.Alternatives[0]
		if text != "" {
			text += " "
		}
		text += alt.Transcript
		confSum += float64(alt.Confidence)
		n++
	}
	if n == 0 {
		return "", 0, nil
	}
	return text, confSum / float64(n), nil
}
