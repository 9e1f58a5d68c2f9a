package constants

import "time"

const (
	// InvoiceDueLeadDays is how many days before the lease start the first
	// invoice falls due.
	InvoiceDueLeadDays = 30

	// MinBookingDuration rejects degenerate bookings with end <= start.
	MinBookingDuration = 24 * time.Hour

	// MaxVersionRetries bounds the optimistic-locking retry loop.
	MaxVersionRetries = 3

	// InvoiceReferencePrefix prefixes generated invoice reference numbers.
	InvoiceReferencePrefix = "INV"
)
