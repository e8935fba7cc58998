package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSDKMessage(t *testing.T) {
	sdkMsg := &sdk.Message{
		ID:           "msg_test_123",
		Model:        "claude-sonnet-4-5-20250929",
		StopReason:   "end_turn",
		StopSequence: "STOP",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Hello world"},
			{Type: "text", Text: "Second block"},
		},
		Usage: sdk.Usage{
			InputTokens:  100,
			OutputTokens: 50,
		},
	}

	resp := fromSDKMessage(sdkMsg)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_123", resp.ID)
	assert.Equal(t, "claude-sonnet-4-5-20250929", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "STOP", resp.StopSequence)
	require.Len(t, resp.Content, 2)
	assert.Equal(t, "Hello world", resp.Content[0].Text)
	assert.Equal(t, "Second block", resp.Content[1].Text)
	assert.Equal(t, int64(100), resp.Usage.InputTokens)
	assert.Equal(t, int64(50), resp.Usage.OutputTokens)
}

func TestFromSDKMessage_EmptyContent(t *testing.T) {
	resp := fromSDKMessage(&sdk.Message{ID: "msg_empty"})
	require.NotNil(t, resp)
	assert.Empty(t, resp.Content)
}

func TestToSDKMessages_Roles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "Q"},
		{Role: "assistant", Content: "A"},
		{Role: "system", Content: "unknown role"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[2].Role)
}

func TestToSDKMessages_ImagesPrecedeText(t *testing.T) {
	msgs := toSDKMessages([]Message{{
		Role:    "user",
		Content: "Describe these slides",
		Images: []Image{
			{MediaType: "image/png", Data: []byte{0x89, 0x50}},
			{MediaType: "image/jpeg", Data: []byte{0xff, 0xd8}},
		},
	}})
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Content, 3)
	assert.NotNil(t, msgs[0].Content[0].OfImage)
	assert.NotNil(t, msgs[0].Content[1].OfImage)
	require.NotNil(t, msgs[0].Content[2].OfText)
	assert.Equal(t, "Describe these slides", msgs[0].Content[2].OfText.Text)
}

func TestToSDKMessages_Empty(t *testing.T) {
	assert.Empty(t, toSDKMessages(nil))
}

func TestNewClient_ReturnsNonNil(t *testing.T) {
	assert.NotNil(t, NewClient("test-key"))
}
