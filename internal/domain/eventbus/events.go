package eventbus

import "time"

// Topics.
const (
	// Transient user-facing notifications (toasts).
	TopicNotifySuccess = "notify:success"
	TopicNotifyError   = "notify:error"

	// Query cache lifecycle.
	TopicQueryUpdated     = "query:updated"
	TopicQueryInvalidated = "query:invalidated"

	// Session writes.
	TopicSessionChanged = "session:changed"
)

// Notification is published on the notify:* topics.
type Notification struct {
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// QueryEvent describes a settled fetch.
type QueryEvent struct {
	Key      string        `json:"key"`
	Resource string        `json:"resource"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// InvalidationEvent lists the resource families marked stale.
type InvalidationEvent struct {
	Families []string `json:"families"`
	Entries  int      `json:"entries"`
}

// SessionEvent is published after login or logout.
type SessionEvent struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}
