package host

// Directive names and namespaces of the host protocol variants this bridge
// targets. The set is fixed; new host versions get entries here or they are
// not supported.
const (
	DirStreamTextCard   = "StreamTextCard"
	DirLoadingStateCard = "LoadingStateCard"
	DirExpectSpeech     = "ExpectSpeech"
	DirClientTracking   = "ClientTracking"
	DirBreenoFeedback   = "BreenoFeedback"
	DirAckPublish       = "AckPublish"

	DirRecognizeCommand       = "RecognizeCommand"
	DirStreamRecognizeResult  = "StreamRecognizeResult"
	NamespaceSpeechRecognizer = "SpeechRecognizer"
)

// Reserved signature pair stamped on every outbound frame before it enters
// the host channel. Frames re-observed on the inbound side are recognized
// by it and never misclassified as host output. Never sent to the backend.
const (
	SignatureKey   = "_injectorSignature"
	SignatureValue = "kakehashi/1"
)

// Identifiers are the host-assigned addressing fields required to place a
// synthesized frame into the right conversation surface.
type Identifiers struct {
	SessionID        string `json:"sessionId"`
	RecordID         string `json:"recordId"`
	OriginalRecordID string `json:"originalRecordId"`
	RoomID           string `json:"roomId"`
}

// Usable reports whether every identifier is present.
func (ids Identifiers) Usable() bool {
	return ids.SessionID != "" && ids.RecordID != "" && ids.OriginalRecordID != "" && ids.RoomID != ""
}

// Sink delivers one synthesized frame into the host UI pipeline. The
// returned bool reports delivery; implementations never panic across this
// boundary.
type Sink interface {
	Inject(frame []byte) bool
}

// Source hands raw inbound host messages to a handler. The handler verdict
// decides whether the original message may continue to the host UI.
type Source interface {
	Subscribe(handler func(raw []byte) Verdict)
}

// Verdict is the interception decision for one inbound message.
type Verdict int

const (
	// VerdictPass lets the original message through to the host UI.
	VerdictPass Verdict = iota
	// VerdictBlock swallows the original message.
	VerdictBlock
)
