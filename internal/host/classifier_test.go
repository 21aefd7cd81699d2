package host

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySelfInjected(t *testing.T) {
	raw := []byte(`{"` + SignatureKey + `":"` + SignatureValue + `","directives":[]}`)

	_, ok := Classify(raw).(SelfInjected)
	assert.True(t, ok)
}

func TestClassifySpeechRecognition(t *testing.T) {
	for _, name := range []string{DirRecognizeCommand, DirStreamRecognizeResult} {
		raw := []byte(`{"directives":[{"header":{"name":"` + name + `","namespace":"SpeechRecognizer"},"payload":{}}]}`)
		_, ok := Classify(raw).(SpeechRecognition)
		assert.True(t, ok, name)
	}
}

func TestClassifySpeechRecognitionWrongNamespace(t *testing.T) {
	raw := []byte(`{"directives":[{"header":{"name":"RecognizeCommand","namespace":"Other"},"payload":{}}]}`)

	_, ok := Classify(raw).(Unclassified)
	assert.True(t, ok)
}

func TestClassifyAcknowledgement(t *testing.T) {
	raw := []byte(`{
		"directives":[{"header":{"name":"LoadingStateCard"},"payload":{"title":"好的，已收到"}}],
		"sessionId":"s1","recordId":"r1","originalRecordId":"o1","roomId":"room1"
	}`)

	ack, ok := Classify(raw).(Acknowledgement)
	require.True(t, ok)
	assert.Equal(t, "好的，已收到", ack.Title)
	assert.Equal(t, "s1", ack.IDs.SessionID)
	assert.Equal(t, "r1", ack.IDs.RecordID)
	assert.Equal(t, "o1", ack.IDs.OriginalRecordID)
	assert.Equal(t, "room1", ack.IDs.RoomID)
}

func TestClassifyUnclassifiedKeepsRaw(t *testing.T) {
	raw := []byte(`{"directives":[{"header":{"name":"SomethingElse"},"payload":{}}]}`)

	u, ok := Classify(raw).(Unclassified)
	require.True(t, ok)
	assert.JSONEq(t, string(raw), u.Raw)
}

// Classification is total: malformed shapes degrade to Unclassified.
func TestClassifyIsTotal(t *testing.T) {
	cases := [][]byte{
		[]byte(`{}`),
		[]byte(`{"directives":"not an array"}`),
		[]byte(`{"directives":[{"header":"not an object"}]}`),
		[]byte(`not json`),
		[]byte(``),
		[]byte(`{"directives":[{"header":{"name":123}}]}`),
	}

	for _, raw := range cases {
		c := Classify(raw)
		require.NotNil(t, c, "input %q", raw)
		_, ok := c.(Unclassified)
		assert.True(t, ok, "input %q", raw)
	}
}

func TestClassifySpeechBeatsAcknowledgement(t *testing.T) {
	raw := []byte(`{"directives":[
		{"header":{"name":"LoadingStateCard"},"payload":{"title":"开始解析"}},
		{"header":{"name":"StreamRecognizeResult","namespace":"SpeechRecognizer"},"payload":{}}
	]}`)

	_, ok := Classify(raw).(SpeechRecognition)
	assert.True(t, ok)
}

func TestClassifySignatureBeatsEverything(t *testing.T) {
	env := map[string]any{
		SignatureKey: SignatureValue,
		"directives": []any{
			map[string]any{
				"header":  map[string]any{"name": "LoadingStateCard"},
				"payload": map[string]any{"title": "好的，已收到"},
			},
		},
	}
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	_, ok := Classify(raw).(SelfInjected)
	assert.True(t, ok)
}
