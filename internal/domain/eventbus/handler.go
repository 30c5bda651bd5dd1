package eventbus

import (
	"jabbusiness-client-go/internal/platform/logging"
)

// LogHandler mirrors bus traffic into the debug log.
type LogHandler struct {
	logger *logging.Logger
}

func NewLogHandler(logger *logging.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// Attach subscribes the handler to every known topic.
func (h *LogHandler) Attach(b *Bus) error {
	subs := map[string]any{
		TopicNotifySuccess:    h.onNotification(TopicNotifySuccess),
		TopicNotifyError:      h.onNotification(TopicNotifyError),
		TopicQueryUpdated:     h.onQuery,
		TopicQueryInvalidated: h.onInvalidation,
		TopicSessionChanged:   h.onSession,
	}
	for topic, fn := range subs {
		if err := b.Subscribe(topic, fn); err != nil {
			return err
		}
	}
	return nil
}

func (h *LogHandler) onNotification(topic string) func(Notification) {
	return func(n Notification) {
		h.logger.DebugTag(logging.TagBus, "%s %s %s", topic, n.Title, n.Message)
	}
}

func (h *LogHandler) onQuery(ev QueryEvent) {
	if ev.Success {
		h.logger.DebugTag(logging.TagBus, "query %s settled in %s", ev.Key, ev.Duration)
		return
	}
	h.logger.DebugTag(logging.TagBus, "query %s failed: %s", ev.Key, ev.Error)
}

func (h *LogHandler) onInvalidation(ev InvalidationEvent) {
	h.logger.DebugTag(logging.TagBus, "invalidated %v (%d entries)", ev.Families, ev.Entries)
}

func (h *LogHandler) onSession(ev SessionEvent) {
	h.logger.DebugTag(logging.TagBus, "session authenticated=%v", ev.Authenticated)
}
