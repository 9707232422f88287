package models

import "time"

// Notification is an in-app alert for operators. Only Read ever changes.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ChildID   string    `json:"childId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type Messenger string

const (
	MessengerWhatsApp Messenger = "whatsapp"
	MessengerTelegram Messenger = "telegram"
	MessengerVK       Messenger = "vk"
)

// NotificationHistoryEntry records one prepared outbound message link.
// Delivery is never tracked.
type NotificationHistoryEntry struct {
	ID             string    `json:"id"`
	SentAt         time.Time `json:"sentAt"`
	Messenger      Messenger `json:"messenger"`
	RecipientName  string    `json:"recipientName"`
	RecipientPhone string    `json:"recipientPhone"`
	RecipientRole  string    `json:"recipientRole,omitempty"`
	Message        string    `json:"message"`
	Link           string    `json:"link"`
	EntryID        string    `json:"entryId,omitempty"`
	RuleID         string    `json:"ruleId,omitempty"` // empty for manual sends
}

// AutoSendSchedule is a daily reminder rule.
type AutoSendSchedule struct {
	ID           string    `json:"id"`
	Name         string    `json:"name" validate:"required"`
	Enabled      bool      `json:"enabled"`
	Time         string    `json:"time" validate:"required,hhmm"`
	Messenger    Messenger `json:"messenger" validate:"required,oneof=whatsapp telegram vk"`
	Template     string    `json:"template" validate:"required"`
	LastSendDate Day       `json:"lastSendDate,omitempty"`
}
