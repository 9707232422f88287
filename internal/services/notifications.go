package services

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/lojf/kidcare/internal/models"
)

func NewNotification(title, message, childID string, now time.Time) models.Notification {
	return models.Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		ChildID:   childID,
		CreatedAt: now,
	}
}

// MarkNotificationRead flags one alert as read; nothing else ever changes.
func MarkNotificationRead(list []models.Notification, id string) ([]models.Notification, error) {
	i := slices.IndexFunc(list, func(n models.Notification) bool { return n.ID == id })
	if i < 0 {
		return nil, notFound("notification", id)
	}
	next := slices.Clone(list)
	next[i].Read = true
	return next, nil
}

// PrepareMessage renders one outbound message for contact and wraps it with
// its messenger link into a history record.
func PrepareMessage(contact models.Contact, kind models.Messenger, tpl string, vars MessageVars, now time.Time) (models.NotificationHistoryEntry, error) {
	vars.ParentName = contact.Name
	msg := RenderTemplate(tpl, vars)
	link, err := BuildMessengerLink(contact.Phone, msg, kind)
	if err != nil {
		return models.NotificationHistoryEntry{}, err
	}
	return models.NotificationHistoryEntry{
		ID:             uuid.NewString(),
		SentAt:         now,
		Messenger:      kind,
		RecipientName:  contact.Name,
		RecipientPhone: contact.Phone,
		RecipientRole:  contact.Role,
		Message:        msg,
		Link:           link,
	}, nil
}
