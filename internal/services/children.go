package services

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lojf/kidcare/internal/models"
)

type ChildInput struct {
	FullName    string     `json:"fullName" validate:"required"`
	BirthDate   models.Day `json:"birthDate,omitempty" validate:"omitempty,day"`
	Gender      string     `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	MotherName  string     `json:"motherName,omitempty"`
	MotherPhone string     `json:"motherPhone,omitempty"`
	FatherName  string     `json:"fatherName,omitempty"`
	FatherPhone string     `json:"fatherPhone,omitempty"`
	Address     string     `json:"address,omitempty"`
	Diagnosis   string     `json:"diagnosis,omitempty"`
	Complaints  string     `json:"complaints,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type SessionInput struct {
	Date         models.Day      `json:"date" validate:"required,day"`
	SpecialistID string          `json:"specialistId" validate:"required"`
	Exercises    []ExerciseInput `json:"exercises" validate:"dive"`
}

type ExerciseInput struct {
	Name        string       `json:"name" validate:"required"`
	Description string       `json:"description,omitempty"`
	Result      string       `json:"result,omitempty"`
	Photos      []PhotoInput `json:"photos,omitempty" validate:"dive"`
}

type PhotoInput struct {
	ContentType string `json:"contentType,omitempty"`
	Data        string `json:"data" validate:"required,base64"`
}

type ReportInput struct {
	Month        string `json:"month" validate:"required,month"`
	SpecialistID string `json:"specialistId,omitempty"`
	Text         string `json:"text" validate:"required"`
}

func FindChild(children []models.Child, id string) (models.Child, error) {
	i := slices.IndexFunc(children, func(c models.Child) bool { return c.ID == id })
	if i < 0 {
		return models.Child{}, notFound("child", id)
	}
	return children[i], nil
}

// CreateChild returns the next children collection with the new child added.
func CreateChild(children []models.Child, in ChildInput, now time.Time) ([]models.Child, models.Child, error) {
	if err := normChildInput(&in); err != nil {
		return nil, models.Child{}, err
	}
	c := models.Child{
		ID:                  uuid.NewString(),
		Code:                generateChildCode(children),
		CreatedAt:           now,
		UpdatedAt:           now,
		Sessions:            []models.Session{},
		MonthlyReports:      []models.MonthlyReport{},
		NotificationHistory: []models.NotificationHistoryEntry{},
	}
	applyChildInput(&c, in)
	return append(slices.Clone(children), c), c, nil
}

func UpdateChild(children []models.Child, id string, in ChildInput, now time.Time) ([]models.Child, models.Child, error) {
	if err := normChildInput(&in); err != nil {
		return nil, models.Child{}, err
	}
	return updateChild(children, id, func(c *models.Child) error {
		applyChildInput(c, in)
		c.UpdatedAt = now
		return nil
	})
}

// SetArchived archives or restores a child. Children are never deleted.
func SetArchived(children []models.Child, id string, archived bool, now time.Time) ([]models.Child, models.Child, error) {
	return updateChild(children, id, func(c *models.Child) error {
		if c.Archived == archived {
			return nil
		}
		c.Archived = archived
		c.ArchivedAt = nil
		if archived {
			c.ArchivedAt = &now
		}
		c.UpdatedAt = now
		return nil
	})
}

func AddSession(children []models.Child, childID string, in SessionInput, now time.Time) ([]models.Child, models.Session, error) {
	if err := Validate(in); err != nil {
		return nil, models.Session{}, err
	}
	s := models.Session{
		ID:           uuid.NewString(),
		ChildID:      childID,
		Date:         in.Date,
		SpecialistID: in.SpecialistID,
		Exercises:    make([]models.Exercise, 0, len(in.Exercises)),
		CreatedAt:    now,
	}
	for _, ex := range in.Exercises {
		e := models.Exercise{
			ID:          uuid.NewString(),
			Name:        ex.Name,
			Description: ex.Description,
			Result:      ex.Result,
			Photos:      make([]models.Photo, 0, len(ex.Photos)),
		}
		for _, p := range ex.Photos {
			e.Photos = append(e.Photos, newPhoto(p, now))
		}
		s.Exercises = append(s.Exercises, e)
	}
	next, _, err := updateChild(children, childID, func(c *models.Child) error {
		c.Sessions = append(slices.Clone(c.Sessions), s)
		c.UpdatedAt = now
		return nil
	})
	return next, s, err
}

// AddExercisePhoto is the only edit a saved session accepts.
func AddExercisePhoto(children []models.Child, childID, sessionID, exerciseID string, in PhotoInput, now time.Time) ([]models.Child, models.Photo, error) {
	if err := Validate(in); err != nil {
		return nil, models.Photo{}, err
	}
	photo := newPhoto(in, now)
	next, _, err := updateChild(children, childID, func(c *models.Child) error {
		si := slices.IndexFunc(c.Sessions, func(s models.Session) bool { return s.ID == sessionID })
		if si < 0 {
			return notFound("session", sessionID)
		}
		sessions := slices.Clone(c.Sessions)
		exercises := slices.Clone(sessions[si].Exercises)
		ei := slices.IndexFunc(exercises, func(e models.Exercise) bool { return e.ID == exerciseID })
		if ei < 0 {
			return notFound("exercise", exerciseID)
		}
		exercises[ei].Photos = append(slices.Clone(exercises[ei].Photos), photo)
		sessions[si].Exercises = exercises
		c.Sessions = sessions
		c.UpdatedAt = now
		return nil
	})
	return next, photo, err
}

func AddMonthlyReport(children []models.Child, childID string, in ReportInput, now time.Time) ([]models.Child, models.MonthlyReport, error) {
	if err := Validate(in); err != nil {
		return nil, models.MonthlyReport{}, err
	}
	r := models.MonthlyReport{
		ID:           uuid.NewString(),
		Month:        in.Month,
		SpecialistID: in.SpecialistID,
		Text:         in.Text,
		CreatedAt:    now,
	}
	next, _, err := updateChild(children, childID, func(c *models.Child) error {
		c.MonthlyReports = append(slices.Clone(c.MonthlyReports), r)
		c.UpdatedAt = now
		return nil
	})
	return next, r, err
}

// AppendHistory adds prepared messages to a child's notification log.
func AppendHistory(children []models.Child, childID string, entries ...models.NotificationHistoryEntry) ([]models.Child, error) {
	next, _, err := updateChild(children, childID, func(c *models.Child) error {
		c.NotificationHistory = append(slices.Clone(c.NotificationHistory), entries...)
		return nil
	})
	return next, err
}

func updateChild(children []models.Child, id string, fn func(*models.Child) error) ([]models.Child, models.Child, error) {
	i := slices.IndexFunc(children, func(c models.Child) bool { return c.ID == id })
	if i < 0 {
		return nil, models.Child{}, notFound("child", id)
	}
	next := slices.Clone(children)
	if err := fn(&next[i]); err != nil {
		return nil, models.Child{}, err
	}
	return next, next[i], nil
}

func normChildInput(in *ChildInput) error {
	in.FullName = strings.TrimSpace(in.FullName)
	if err := Validate(*in); err != nil {
		return err
	}
	for _, p := range []*string{&in.MotherPhone, &in.FatherPhone} {
		raw := strings.TrimSpace(*p)
		if raw == "" {
			*p = ""
			continue
		}
		n := NormPhone(raw)
		if n == "" {
			return invalid("phone %q is not a phone number", raw)
		}
		*p = n
	}
	return nil
}

func applyChildInput(c *models.Child, in ChildInput) {
	c.FullName = in.FullName
	c.BirthDate = in.BirthDate
	c.Gender = in.Gender
	c.MotherName = in.MotherName
	c.MotherPhone = in.MotherPhone
	c.FatherName = in.FatherName
	c.FatherPhone = in.FatherPhone
	c.Address = in.Address
	c.Diagnosis = in.Diagnosis
	c.Complaints = in.Complaints
	c.Notes = in.Notes
}

func newPhoto(in PhotoInput, now time.Time) models.Photo {
	return models.Photo{
		ID:          uuid.NewString(),
		ContentType: in.ContentType,
		Data:        in.Data,
		AddedAt:     now,
	}
}

func generateChildCode(children []models.Child) string {
	used := make(map[string]bool, len(children))
	for _, c := range children {
		used[c.Code] = true
	}
	for i := 0; i < 20; i++ {
		code := fmt.Sprintf("CH-%05d", rand.Intn(100000))
		if !used[code] {
			return code
		}
	}
	return "CH-" + strings.ToUpper(uuid.NewString()[:8])
}
