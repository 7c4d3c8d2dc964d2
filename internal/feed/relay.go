package feed

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Publisher fans status changes out to other processes.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// RelayStatus forwards hub updates to channel whenever the status changes.
// Repeated frames with the same status are not republished. It returns when
// ctx ends.
func RelayStatus(ctx context.Context, log *logrus.Logger, hub *Hub, pub Publisher, channel string) {
	updates, unsubscribe := hub.Subscribe(8)
	defer unsubscribe()

	var last Update
	first := true

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if !first && u.Status == last.Status {
				continue
			}
			first = false
			last = u

			if err := pub.Publish(ctx, channel, u); err != nil {
				log.WithFields(logrus.Fields{
					"channel": channel,
					"status":  u.Status,
					"error":   err.Error(),
				}).Warn("Failed to relay status")
			}
		}
	}
}
