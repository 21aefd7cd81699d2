package host

import "encoding/json"

// Classification is the category assigned to one inbound host message.
type Classification interface {
	classification()
}

// SelfInjected marks one of our own synthesized frames re-observed on the
// inbound channel.
type SelfInjected struct{}

// SpeechRecognition marks ASR traffic that must always pass through.
type SpeechRecognition struct{}

// Acknowledgement is the host's loading-card handshake. Title carries the
// card text; IDs carry the correlation identifiers found on the envelope.
type Acknowledgement struct {
	Title string
	IDs   Identifiers
}

// Unclassified is everything else, carrying the raw message text. With a
// custom turn active this is the host's own LLM output and gets blocked.
type Unclassified struct {
	Raw string
}

func (SelfInjected) classification()      {}
func (SpeechRecognition) classification() {}
func (Acknowledgement) classification()   {}
func (Unclassified) classification()      {}

type inboundDirective struct {
	Header struct {
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
	} `json:"header"`
	Payload struct {
		Title string `json:"title"`
	} `json:"payload"`
}

type inboundEnvelope struct {
	Signature  string             `json:"_injectorSignature"`
	Directives []inboundDirective `json:"directives"`
	Identifiers
}

// Classify assigns raw to exactly one category. It is total: any parse or
// shape problem degrades to Unclassified, it never fails.
func Classify(raw []byte) Classification {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Unclassified{Raw: string(raw)}
	}

	if env.Signature == SignatureValue {
		return SelfInjected{}
	}

	for _, d := range env.Directives {
		if d.Header.Namespace == NamespaceSpeechRecognizer &&
			(d.Header.Name == DirRecognizeCommand || d.Header.Name == DirStreamRecognizeResult) {
			return SpeechRecognition{}
		}
	}

	for _, d := range env.Directives {
		if d.Header.Name == DirLoadingStateCard {
			return Acknowledgement{Title: d.Payload.Title, IDs: env.Identifiers}
		}
	}

	return Unclassified{Raw: string(raw)}
}
