package wa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

func TestMessageText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waProto.Message
		text string
		kind string
	}{
		{"conversation", &waProto.Message{Conversation: proto.String("/start")}, "/start", "text"},
		{"extended", &waProto.Message{ExtendedTextMessage: &waProto.ExtendedTextMessage{Text: proto.String("hi")}}, "hi", "extended_text"},
		{"image caption", &waProto.Message{ImageMessage: &waProto.ImageMessage{Caption: proto.String("/image cat")}}, "/image cat", "image"},
		{"audio", &waProto.Message{AudioMessage: &waProto.AudioMessage{}}, "", "audio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.text, MessageText(tt.msg))
			assert.Equal(t, tt.kind, MessageKind(tt.msg))
		})
	}
	assert.Equal(t, "", MessageText(nil))
}

func TestUserIDRoundTrip(t *testing.T) {
	jid := types.NewADJID("998901112233", 0, 3)
	id, err := UserID(jid)
	require.NoError(t, err)
	assert.Equal(t, int64(998901112233), id)
	assert.Equal(t, "998901112233@s.whatsapp.net", UserJID(id).String())

	_, err = UserID(types.NewJID("status", types.BroadcastServer))
	assert.Error(t, err)
}
