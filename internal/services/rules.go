package services

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lojf/kidcare/internal/models"
)

type RuleInput struct {
	Name      string           `json:"name" validate:"required"`
	Enabled   bool             `json:"enabled"`
	Time      string           `json:"time" validate:"required,hhmm"`
	Messenger models.Messenger `json:"messenger" validate:"required,oneof=whatsapp telegram vk"`
	Template  string           `json:"template" validate:"required"`
}

func CreateRule(list []models.AutoSendSchedule, in RuleInput) ([]models.AutoSendSchedule, models.AutoSendSchedule, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := Validate(in); err != nil {
		return nil, models.AutoSendSchedule{}, err
	}
	r := models.AutoSendSchedule{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Enabled:   in.Enabled,
		Time:      in.Time,
		Messenger: in.Messenger,
		Template:  in.Template,
	}
	return append(slices.Clone(list), r), r, nil
}

// UpdateRule edits a rule and keeps its last send date, so moving the
// trigger time later on the same day does not fire it twice.
func UpdateRule(list []models.AutoSendSchedule, id string, in RuleInput) ([]models.AutoSendSchedule, models.AutoSendSchedule, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := Validate(in); err != nil {
		return nil, models.AutoSendSchedule{}, err
	}
	i := slices.IndexFunc(list, func(r models.AutoSendSchedule) bool { return r.ID == id })
	if i < 0 {
		return nil, models.AutoSendSchedule{}, notFound("auto-send rule", id)
	}
	next := slices.Clone(list)
	r := &next[i]
	r.Name = in.Name
	r.Enabled = in.Enabled
	r.Time = in.Time
	r.Messenger = in.Messenger
	r.Template = in.Template
	return next, *r, nil
}

func DeleteRule(list []models.AutoSendSchedule, id string) ([]models.AutoSendSchedule, error) {
	i := slices.IndexFunc(list, func(r models.AutoSendSchedule) bool { return r.ID == id })
	if i < 0 {
		return nil, notFound("auto-send rule", id)
	}
	return slices.Delete(slices.Clone(list), i, i+1), nil
}

// RuleDue reports whether rule should fire at now: enabled, the clock shows
// its trigger minute, and it has not fired today.
func RuleDue(rule models.AutoSendSchedule, now time.Time) bool {
	return rule.Enabled &&
		now.Format("15:04") == rule.Time &&
		rule.LastSendDate != models.DayOf(now)
}
