package bridge

import (
	"log/slog"

	"github.com/harunnryd/kakehashi/internal/config"
	"github.com/harunnryd/kakehashi/internal/host"
)

// Interceptor decides, per inbound host message, whether the original may
// continue to the host UI. It also drives the turn handshake: the host's
// "ready" loading card carries the fresh correlation identifiers, so seeing
// it refreshes the tracker and fires the gate.
//
// Verdict policy: our own frames and ASR traffic always pass. The ready and
// parsing loading cards pass so the host UI keeps its loading affordance.
// Everything else is the host's own answer pipeline and gets blocked while
// a custom turn owns the conversation; in pass-through mode nothing is
// blocked at all.
type Interceptor struct {
	cfg     *config.Holder
	tracker *host.Tracker
	gate    *Gate

	passThrough func() bool
}

func NewInterceptor(cfg *config.Holder, tracker *host.Tracker, gate *Gate, passThrough func() bool) *Interceptor {
	return &Interceptor{
		cfg:         cfg,
		tracker:     tracker,
		gate:        gate,
		passThrough: passThrough,
	}
}

func (i *Interceptor) Handle(raw []byte) host.Verdict {
	switch c := host.Classify(raw).(type) {
	case host.SelfInjected:
		return host.VerdictPass

	case host.SpeechRecognition:
		return host.VerdictPass

	case host.Acknowledgement:
		return i.handleAcknowledgement(c)

	default:
		if i.passThrough() {
			return host.VerdictPass
		}
		slog.Debug("Blocking host output", "bytes", len(raw))
		return host.VerdictBlock
	}
}

func (i *Interceptor) handleAcknowledgement(ack host.Acknowledgement) host.Verdict {
	cfg := i.cfg.Snapshot().Bridge

	switch ack.Title {
	case cfg.AckReadyTitle:
		slog.Debug("Acknowledgement handshake", "room", ack.IDs.RoomID)
		i.tracker.Refresh(ack.IDs)
		i.gate.Signal()
		return host.VerdictPass

	case cfg.AckParsingTitle:
		return host.VerdictPass

	default:
		if i.passThrough() {
			return host.VerdictPass
		}
		return host.VerdictBlock
	}
}
