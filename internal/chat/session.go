package chat

import "sync"

// Session owns the conversation history for one room. Appends only; the
// host signals a new room and the bridge clears the session in response.
type Session struct {
	mu      sync.Mutex
	history []Message
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Append(messages ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, messages...)
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// History returns a copy of the stored messages.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Payload assembles the request message list: the system prompt (when
// non-empty) followed by the full history.
func (s *Session) Payload(systemPrompt string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, 0, len(s.history)+1)
	if systemPrompt != "" {
		out = append(out, SystemMessage(systemPrompt))
	}
	out = append(out, s.history...)
	return out
}
