package cli

import (
	"context"
	"strings"
	"time"

	"github.com/iudanet/labsync/pkg/api"
)

// RunWatch присоединяется к документу и печатает события присутствия и блокировок
func (c *Cli) RunWatch(ctx context.Context, entityType, entityID string) error {
	if c.presence == nil {
		return errUnavailable
	}
	c.io.Printf("Watching %s/%s. Press Ctrl+C to stop.\n", entityType, entityID)
	return c.presence.Watch(ctx, entityType, entityID, func(msg api.PresenceMessage) error {
		c.io.Println(describeEvent(msg))
		return nil
	})
}

func describeEvent(msg api.PresenceMessage) string {
	ts := time.Now().Format(time.TimeOnly)
	who := msg.UserID
	if msg.User != nil {
		who = msg.User.Name
	}
	field := msg.Field
	if msg.Lock != nil {
		if who == "" {
			who = msg.Lock.UserName
		}
		field = msg.Lock.Field
	}
	if field == "" {
		field = "document"
	}

	var b strings.Builder
	b.WriteString(ts)
	b.WriteString(" ")
	b.WriteString(msg.Type)
	switch msg.Type {
	case api.PresenceDocumentState:
		names := make([]string, 0, len(msg.Users))
		for _, u := range msg.Users {
			names = append(names, u.Name)
		}
		b.WriteString(": users [" + strings.Join(names, ", ") + "]")
		for _, l := range msg.Locks {
			lf := l.Field
			if lf == "" {
				lf = "document"
			}
			b.WriteString(", " + lf + " locked by " + l.UserName)
		}
	case api.PresenceUserJoined, api.PresenceUserLeft, api.PresenceCursorUpdate, api.PresenceSelectionUpdate:
		b.WriteString(": " + who)
	case api.PresenceLockGranted, api.PresenceLockAcquired, api.PresenceLockReleased, api.PresenceLockExpired:
		b.WriteString(": " + field)
		if who != "" {
			b.WriteString(" by " + who)
		}
	case api.PresenceLockDenied:
		b.WriteString(": " + field)
		if msg.Reason != "" {
			b.WriteString(" (" + msg.Reason + ")")
		}
	case api.PresenceError:
		b.WriteString(": " + msg.Reason)
	case api.PresenceForceRefresh:
		b.WriteString(": reload the document")
	}
	return b.String()
}
