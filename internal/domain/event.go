// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	KindMessage EventKind = "message"
)

type DeliveryState string

const (
	DeliveryPending      DeliveryState = "PENDING"
	DeliveryAttempting   DeliveryState = "ATTEMPTING"
	DeliveryDelivered    DeliveryState = "DELIVERED"
	DeliveryDeadLettered DeliveryState = "DEAD_LETTERED"
)

// Event is one backend notification after ingestion. Seq is assigned by the
// adapter at intake, is strictly increasing for the process lifetime and
// defines delivery order.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Seq         int64     `json:"seq"`
	Kind        EventKind `json:"kind"`
	Payload     Message   `json:"payload"`
	PayloadHash string    `json:"payload_hash"`
	ReceivedAt  time.Time `json:"received_at"`
}

// DeliveryAttempt records one HTTP call to the callback URL.
type DeliveryAttempt struct {
	Number     int           `json:"number"`
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Dead-letter reasons.
const (
	DeadLetterRejected  = "permanent_rejection"
	DeadLetterExhausted = "retries_exhausted"
	DeadLetterShutdown  = "shutdown"
	DeadLetterOverflow  = "queue_overflow"
)

// DeadLetter is the terminal record of an event that could not be delivered
// within policy. It always carries the full event and its attempt history.
type DeadLetter struct {
	Event     Event             `json:"event"`
	Attempts  []DeliveryAttempt `json:"attempts"`
	Reason    string            `json:"reason"`
	CreatedAt time.Time         `json:"created_at"`
}
