package stt

import (
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestTranscriptJoinsResults(t *testing.T) {
	results := []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{
			{Transcript: "hi, can I get", Confidence: 0.9},
			{Transcript: "hi can I bet", Confidence: 0.4},
		}},
		{Alternatives: nil},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{
			{Transcript: "a late checkout", Confidence: 0.7},
		}},
	}

	text, conf, err := bestTranscript(results)
	require.NoError(t, err)
	assert.Equal(t, "hi, can I get a late checkout", text)
	assert.InDelta(t, 0.8, conf, 0.0001)
}

func TestBestTranscriptEmpty(t *testing.T) {
	text, conf, err := bestTranscript(nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, conf)
}
