package chat

import (
	"fmt"
	"hash/fnv"
)

// greetings is the persona set. One is chosen per session by hashing the
// session identifier, so a user who reloads the widget sees the same
// persona instead of a reshuffled one; no session storage is needed for
// that stability.
var greetings = []string{
	"Hi there! I'm the %s assistant. I can answer questions, share pricing, or find you a time to talk. What can I do for you?",
	"Welcome to %s! Ask me anything, or say \"book a call\" and I'll pull up our next open times.",
	"Hey! You've reached %s. I can help with pricing, availability, or booking a quick call. Where should we start?",
	"Hello! This is the %s booking assistant. Want to see when we're free, or do you have a question first?",
}

// greetingFor deterministically selects the session's greeting.
func greetingFor(sessionID, businessName string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return fmt.Sprintf(greetings[h.Sum32()%uint32(len(greetings))], businessName)
}
