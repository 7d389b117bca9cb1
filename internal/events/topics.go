package events

// Topic constants for domain events emitted by the platform.
const (
	TopicReservationCreated   = "reservation.created"
	TopicReservationCheckedIn = "reservation.checked_in"
	TopicReservationCompleted = "reservation.completed"
	TopicReservationCanceled  = "reservation.canceled"
	TopicBillCreated          = "bill.created"
	TopicBillPaid             = "bill.paid"
	TopicPaymentFailed        = "payment.failed"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicReservationCreated,
		TopicReservationCheckedIn,
		TopicReservationCompleted,
		TopicReservationCanceled,
		TopicBillCreated,
		TopicBillPaid,
		TopicPaymentFailed,
	}
}
