package storage

import (
	"context"
	"io"
)

// Uploader archives raw inbound media.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// VoiceObjectName is where a voice note is archived.
func VoiceObjectName(conversationID, messageID string) string {
	return "voice/" + conversationID + "/" + messageID + ".ogg"
}
