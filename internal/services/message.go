package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lojf/kidcare/internal/models"
)

// MessageVars are the placeholders a template may use.
type MessageVars struct {
	ChildName      string
	ParentName     string
	SpecialistName string
	Date           models.Day
	Time           string
}

// RenderTemplate substitutes {childName}, {parentName}, {specialistName},
// {date} and {time}. Unknown placeholders are left as they are.
func RenderTemplate(tpl string, v MessageVars) string {
	r := strings.NewReplacer(
		"{childName}", v.ChildName,
		"{parentName}", v.ParentName,
		"{specialistName}", v.SpecialistName,
		"{date}", v.Date.Display(),
		"{time}", v.Time,
	)
	return r.Replace(tpl)
}

// BuildMessengerLink returns the deep link an operator opens to send msg.
// Nothing is sent from here.
func BuildMessengerLink(phone, msg string, kind models.Messenger) (string, error) {
	n := NormPhone(phone)
	digits := digitsOnly(n)
	text := url.QueryEscape(msg)

	switch kind {
	case models.MessengerWhatsApp:
		return "https://wa.me/" + digits + "?text=" + text, nil
	case models.MessengerTelegram:
		if n == "" {
			return "https://t.me/share/url?url=&text=" + text, nil
		}
		return "https://t.me/" + url.PathEscape(n) + "?text=" + text, nil
	case models.MessengerVK:
		// VK has no phone addressing; the operator picks the dialog.
		return "https://vk.com/share.php?comment=" + text, nil
	}
	return "", invalid("unknown messenger %q", kind)
}

// ParentContact picks the contact of role ("mother" or "father") on child.
func ParentContact(child models.Child, role string) (models.Contact, error) {
	for _, c := range child.Contacts() {
		if c.Role == role {
			return c, nil
		}
	}
	return models.Contact{}, fmt.Errorf("%w: child %s has no %s phone on file", ErrValidation, child.FullName, role)
}
