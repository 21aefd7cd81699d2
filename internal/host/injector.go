package host

import (
	"encoding/json"
	"log/slog"
)

// Injector signs outbound frames and hands them to the sink. Signing
// happens here, on the way out, so every frame the classifier re-observes
// carries the marker no matter which builder produced it.
type Injector struct {
	sink Sink
}

func NewInjector(sink Sink) *Injector {
	return &Injector{sink: sink}
}

func (i *Injector) Inject(frame []byte) bool {
	signed, err := sign(frame)
	if err != nil {
		slog.Error("Frame signing failed", "error", err)
		return false
	}
	return i.sink.Inject(signed)
}

func sign(frame []byte) ([]byte, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(frame, &obj); err != nil {
		return nil, err
	}

	value, err := json.Marshal(SignatureValue)
	if err != nil {
		return nil, err
	}
	obj[SignatureKey] = value

	return json.Marshal(obj)
}
