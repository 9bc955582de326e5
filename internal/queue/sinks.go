package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BookingAuditHandler appends one line per booking change to
// <dir>/booking.log.
func BookingAuditHandler(dir string) Handler {
	return func(_ context.Context, body []byte) error {
		var ev BookingChangedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line := fmt.Sprintf("[%s] Booking %s | booking_id=%d | kind=%s | resource_id=%d | user_id=%d | owner_id=%d | from=%s | to=%s\n",
			ev.ChangedAt.UTC().Format(time.RFC3339), strings.ToLower(ev.Status), ev.BookingID, ev.Kind, ev.ResourceID,
			ev.UserID, ev.OwnerID, ev.StartsAt.UTC().Format(time.RFC3339), ev.EndsAt.UTC().Format(time.RFC3339))
		return appendLine(dir, "booking.log", line)
	}
}

// MailOutboxHandler records outgoing mail in <dir>/mail.log and the
// application log.  Delivery to an SMTP relay plugs in here.
func MailOutboxHandler(dir string, log zerolog.Logger) Handler {
	return func(_ context.Context, body []byte) error {
		var m MailMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if m.To == "" || m.Template == "" {
			return fmt.Errorf("mail without recipient or template")
		}
		keys := make([]string, 0, len(m.Data))
		for k := range m.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+m.Data[k])
		}
		log.Info().Str("template", m.Template).Str("to", m.To).Msg("mail queued")
		line := fmt.Sprintf("[%s] %s | to=%s | %s\n",
			m.QueuedAt.UTC().Format(time.RFC3339), m.Template, m.To, strings.Join(parts, " | "))
		return appendLine(dir, "mail.log", line)
	}
}

func appendLine(dir, name, line string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
