package store

import "sync"

// Message levels surfaced to the shopper.
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelWarning = "warning"
)

// Message is one user-visible notification.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Feed collects the notifications and navigation signals store operations
// produce until the view layer drains them into a response. It implements
// both Notifier and Navigator.
type Feed struct {
	mu       sync.Mutex
	messages []Message
	routes   []string
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Success(text string) { f.push(LevelSuccess, text) }
func (f *Feed) Error(text string)   { f.push(LevelError, text) }
func (f *Feed) Warning(text string) { f.push(LevelWarning, text) }

// NavigateTo records a navigation signal.
func (f *Feed) NavigateTo(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, route)
}

func (f *Feed) push(level, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, Message{Level: level, Text: text})
}

// Drain returns and clears the pending messages and navigation signals.
func (f *Feed) Drain() ([]Message, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	messages := f.messages
	routes := f.routes
	f.messages = nil
	f.routes = nil
	return messages, routes
}
