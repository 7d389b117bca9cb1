package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rizki-dev/backend-warung/internal/common"
	"github.com/rizki-dev/backend-warung/internal/events"
)

// EmailNotifier sends transactional emails for selected topics.
type EmailNotifier struct {
	Mail         common.EmailSender
	Enabled      bool
	From         string
	TopicToggles map[string]bool
}

// Notify implements the events.Notifier interface. Events whose payload
// carries no recipient address are skipped silently.
func (n EmailNotifier) Notify(_ context.Context, event events.Event) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	if n.TopicToggles != nil {
		if enabled, ok := n.TopicToggles[event.Topic]; ok && !enabled {
			return nil
		}
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to := extractRecipient(payload)
	if to == "" {
		return nil
	}
	subject := subjectFor(event.Topic)
	body := bodyFor(event.Topic, payload, event.OccurredAt)
	return n.Mail.Send(to, subject, body)
}

func extractRecipient(payload map[string]any) string {
	keys := []string{"email", "diner_email", "recipient"}
	for _, key := range keys {
		if val, ok := payload[key]; ok {
			if s, ok := val.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func subjectFor(topic string) string {
	switch topic {
	case events.TopicReservationCreated:
		return "Reservasi diterima"
	case events.TopicReservationCheckedIn:
		return "Selamat menikmati"
	case events.TopicReservationCompleted:
		return "Terima kasih atas kunjungan Anda"
	case events.TopicReservationCanceled:
		return "Reservasi dibatalkan"
	case events.TopicBillCreated:
		return "Tagihan diterbitkan"
	case events.TopicBillPaid:
		return "Pembayaran berhasil"
	case events.TopicPaymentFailed:
		return "Pembayaran gagal"
	default:
		return fmt.Sprintf("Notifikasi %s", topic)
	}
}

func bodyFor(topic string, payload map[string]any, occurred time.Time) string {
	summary := fmt.Sprintf("Event %s terjadi pada %s.", topic, occurred.Format(time.RFC3339))
	if reservationID, ok := payload["reservation_id"].(string); ok && reservationID != "" {
		summary += fmt.Sprintf("\nID Reservasi: %s", reservationID)
	}
	if billID, ok := payload["bill_id"].(string); ok && billID != "" {
		summary += fmt.Sprintf("\nID Tagihan: %s", billID)
	}
	if note, ok := payload["message"].(string); ok && note != "" {
		summary += "\n" + note
	}
	return summary
}
