// internal/audit/audit.go
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event describes one state-changing call for the audit collaborator.
type Event struct {
	Action       string
	MembershipID uuid.UUID
	TargetID     *uuid.UUID
	Metadata     map[string]interface{}
	OccurredAt   time.Time
}

// Notifier receives events after the owning transaction has committed.
// Notification is fire-and-forget: it is never part of the transaction and
// a failure must not fail the call that produced the event.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// LogNotifier writes audit events to the structured log.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier(log *logrus.Entry) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) {
	fields := logrus.Fields{
		"action":        event.Action,
		"membership_id": event.MembershipID,
		"occurred_at":   event.OccurredAt.Format(time.RFC3339),
	}
	if event.TargetID != nil {
		fields["target_id"] = event.TargetID.String()
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}
	n.log.WithFields(fields).Info("audit event")
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
