package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojf/kidcare/internal/models"
)

func TestRenderTemplate(t *testing.T) {
	got := RenderTemplate("{parentName}, {childName} has {specialistName} on {date} at {time}. {unknown}", MessageVars{
		ChildName: "Misha", ParentName: "Olga", SpecialistName: "Anna", Date: "2024-12-10", Time: "10:00",
	})
	assert.Equal(t, "Olga, Misha has Anna on 10.12.2024 at 10:00. {unknown}", got)
}

func TestBuildMessengerLink(t *testing.T) {
	cases := []struct {
		kind  models.Messenger
		phone string
		want  string
	}{
		{models.MessengerWhatsApp, "8 912 345 67 89", "https://wa.me/79123456789?text=hi+there"},
		{models.MessengerTelegram, "+79123456789", "https://t.me/+79123456789?text=hi+there"},
		{models.MessengerTelegram, "", "https://t.me/share/url?url=&text=hi+there"},
		{models.MessengerVK, "+79123456789", "https://vk.com/share.php?comment=hi+there"},
	}
	for _, c := range cases {
		got, err := BuildMessengerLink(c.phone, "hi there", c.kind)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, string(c.kind))
	}

	_, err := BuildMessengerLink("+79123456789", "x", "sms")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPrepareMessage(t *testing.T) {
	child := models.Child{FullName: "Misha", MotherName: "Olga", MotherPhone: "+79123456789"}
	contact, err := ParentContact(child, "mother")
	require.NoError(t, err)

	h, err := PrepareMessage(contact, models.MessengerWhatsApp, "Hello {parentName}", MessageVars{ChildName: "Misha"}, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, "Hello Olga", h.Message)
	assert.Equal(t, "Olga", h.RecipientName)
	assert.Empty(t, h.RuleID)

	_, err = ParentContact(child, "father")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMarkNotificationRead(t *testing.T) {
	list := []models.Notification{NewNotification("t", "m", "", fixedNow())}
	next, err := MarkNotificationRead(list, list[0].ID)
	require.NoError(t, err)
	assert.True(t, next[0].Read)
	assert.False(t, list[0].Read)

	_, err = MarkNotificationRead(list, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
