package telegram

import (
	"fmt"
	"strings"
)

// Telegram rejects messages above 4096 characters.
const maxMessageLen = 4090

// SplitDigestMessage splits a rendered digest into Telegram-sized parts.
// The first part carries the digest header, continuation parts a short marker.
func SplitDigestMessage(category, text string) []string {
	header := fmt.Sprintf("📰 *PulseAI digest: %s*\n\n", category)
	if len(header)+len(text) <= maxMessageLen {
		return []string{header + text}
	}

	var messages []string
	var current strings.Builder
	current.WriteString(header)
	part := 1

	for _, paragraph := range strings.Split(text, "\n\n") {
		entry := paragraph + "\n\n"
		if current.Len()+len(entry) > maxMessageLen {
			messages = append(messages, strings.TrimRight(current.String(), "\n"))
			part++
			current.Reset()
			current.WriteString(fmt.Sprintf("📰 *PulseAI digest: %s (part %d)*\n\n", category, part))
		}
		current.WriteString(entry)
	}
	if strings.TrimSpace(current.String()) != "" {
		messages = append(messages, strings.TrimRight(current.String(), "\n"))
	}
	return messages
}
