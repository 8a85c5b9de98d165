package services

import (
	"sync"
	"time"

	"ringan/work-flows/models"
)

// ConversationHistoryManager is the append-only, ordered message log of one
// chat session. Messages are never edited, removed or reordered.
type ConversationHistoryManager struct {
	mu                  sync.RWMutex
	conversationHistory []models.ChatMessage
	nextIndex           int
	now                 func() time.Time
}

func NewConversationHistoryManager() *ConversationHistoryManager {
	return &ConversationHistoryManager{
		conversationHistory: []models.ChatMessage{},
		now:                 time.Now,
	}
}

// Append stores msg with the next index and the current time, overriding
// whatever Index and Timestamp it carried.
func (chm *ConversationHistoryManager) Append(msg models.ChatMessage) models.ChatMessage {
	chm.mu.Lock()
	defer chm.mu.Unlock()

	msg.Index = chm.nextIndex
	msg.Timestamp = chm.now()
	chm.nextIndex++
	chm.conversationHistory = append(chm.conversationHistory, msg)
	return msg
}

// LastOfRole returns the most recent message with the given role.
func (chm *ConversationHistoryManager) LastOfRole(role models.MessageRole) (models.ChatMessage, bool) {
	chm.mu.RLock()
	defer chm.mu.RUnlock()

	for i := len(chm.conversationHistory) - 1; i >= 0; i-- {
		if chm.conversationHistory[i].Role == role {
			return chm.conversationHistory[i], true
		}
	}
	return models.ChatMessage{}, false
}

// ByRequestID returns the messages that belong to one exchange, in order.
func (chm *ConversationHistoryManager) ByRequestID(requestID string) []models.ChatMessage {
	chm.mu.RLock()
	defer chm.mu.RUnlock()

	var out []models.ChatMessage
	for _, msg := range chm.conversationHistory {
		if msg.RequestID == requestID {
			out = append(out, msg)
		}
	}
	return out
}

func (chm *ConversationHistoryManager) Len() int {
	chm.mu.RLock()
	defer chm.mu.RUnlock()
	return len(chm.conversationHistory)
}

// GetRecentHistory returns up to the last maxMessages messages; zero or less
// returns none.
func (chm *ConversationHistoryManager) GetRecentHistory(maxMessages int) []models.ChatMessage {
	chm.mu.RLock()
	defer chm.mu.RUnlock()

	n := len(chm.conversationHistory)
	start := n - min(max(maxMessages, 0), n)
	return append([]models.ChatMessage(nil), chm.conversationHistory[start:]...)
}

// GetConversationHistory returns a snapshot; callers may not mutate the log.
func (chm *ConversationHistoryManager) GetConversationHistory() []models.ChatMessage {
	chm.mu.RLock()
	defer chm.mu.RUnlock()
	return append([]models.ChatMessage(nil), chm.conversationHistory...)
}

func (chm *ConversationHistoryManager) GetConversationStats() map[string]int {
	chm.mu.RLock()
	defer chm.mu.RUnlock()

	return map[string]int{
		"total_messages":  len(chm.conversationHistory),
		"user_messages":   chm.countMessagesByRole(models.MessageRoleUser),
		"ai_messages":     chm.countMessagesByRole(models.MessageRoleAI),
		"system_messages": chm.countMessagesByRole(models.MessageRoleSystem),
	}
}

func (chm *ConversationHistoryManager) countMessagesByRole(role models.MessageRole) int {
	count := 0
	for _, msg := range chm.conversationHistory {
		if msg.Role == role {
			count++
		}
	}
	return count
}
