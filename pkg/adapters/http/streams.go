package http

import (
	"sync"
)

// StreamManager handles active SSE connections per dialogue.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // DialogueID -> Set of Channels
	dropped     func(dialogueID string)
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a listener. The returned func unsubscribes and
// closes the channel.
func (sm *StreamManager) Subscribe(dialogueID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[dialogueID]; !ok {
		sm.subscribers[dialogueID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[dialogueID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[dialogueID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, dialogueID)
				}
			}
		})
	}
}

// Broadcast sends msg to every listener of the dialogue. Slow listeners
// with a full buffer miss the message.
func (sm *StreamManager) Broadcast(dialogueID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[dialogueID] {
		select {
		case ch <- msg:
		default:
			if sm.dropped != nil {
				sm.dropped(dialogueID)
			}
		}
	}
}

// Subscribers reports how many listeners a dialogue has.
func (sm *StreamManager) Subscribers(dialogueID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[dialogueID])
}
