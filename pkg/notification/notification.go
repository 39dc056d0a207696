package notification

import (
	"context"
	"fmt"
	"time"

	"SafeHaven/pkg/logger"

	"go.uber.org/zap"
)

// Push carries one push message to a device token.
type Push struct {
	Token string
	Title string
	Body  string
	Data  map[string]interface{}
}

// Notifier delivers push messages. Delivery is best effort; callers
// log failures and continue.
type Notifier interface {
	Send(ctx context.Context, push Push) error
}

// Nop discards all pushes. Used when PUSH_ENABLED is off and in tests.
type Nop struct{}

func (Nop) Send(ctx context.Context, push Push) error { return nil }

// NotifyDispatch pushes an alert assignment to a responder without
// blocking the caller. Initial dispatch and escalation both announce
// assignments through this one message, so the format cannot drift
// between them. An empty token is a no-op.
func NotifyDispatch(n Notifier, token string, alertID, responderID uint, requesterName string) {
	if token == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := n.Send(ctx, Push{
			Token: token,
			Title: "🚨 Emergency Alert",
			Body:  fmt.Sprintf("New alert from %s", requesterName),
			Data:  map[string]interface{}{"alertId": alertID},
		})
		if err != nil {
			logger.Warn("push notification failed",
				zap.Uint("alert_id", alertID), zap.Uint("responder_id", responderID), zap.Error(err))
		}
	}()
}
