package notify

import "go.uber.org/zap"

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is the transient toast surfaced to the operator.
// Delivery is fire-and-forget; no return value is consumed.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

type Notifier interface {
	Notify(n Notification)
}

// ZapNotifier renders notifications into the structured log, the closest
// server-side analogue of the admin UI's toast stack.
type ZapNotifier struct {
	log *zap.SugaredLogger
}

func NewZapNotifier(log *zap.SugaredLogger) *ZapNotifier {
	return &ZapNotifier{log: log}
}

func (z *ZapNotifier) Notify(n Notification) {
	switch n.Severity {
	case SeverityError:
		z.log.Errorw(n.Title, "description", n.Description)
	case SeverityWarning:
		z.log.Warnw(n.Title, "description", n.Description)
	default:
		z.log.Infow(n.Title, "description", n.Description)
	}
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, sink := range m {
		sink.Notify(n)
	}
}
