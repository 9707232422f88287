package services

import (
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lojf/kidcare/internal/models"
)

type SpecialistInput struct {
	FullName string      `json:"fullName" validate:"required"`
	Email    string      `json:"email" validate:"required"`
	Password string      `json:"password,omitempty"`
	Role     models.Role `json:"role" validate:"required,oneof=admin specialist"`
	Category string      `json:"category,omitempty"`
	Phone    string      `json:"phone,omitempty"`
}

// NormEmail lowercases and trims an address; ok is false when it does not parse.
func NormEmail(s string) (string, bool) {
	e := strings.TrimSpace(strings.ToLower(s))
	if e == "" {
		return "", false
	}
	_, err := mail.ParseAddress(e)
	return e, err == nil
}

func FindSpecialist(list []models.Specialist, id string) (models.Specialist, error) {
	i := slices.IndexFunc(list, func(s models.Specialist) bool { return s.ID == id })
	if i < 0 {
		return models.Specialist{}, notFound("specialist", id)
	}
	return list[i], nil
}

func CreateSpecialist(list []models.Specialist, in SpecialistInput, now time.Time) ([]models.Specialist, models.Specialist, error) {
	if err := normSpecialistInput(list, "", &in); err != nil {
		return nil, models.Specialist{}, err
	}
	if in.Password == "" {
		return nil, models.Specialist{}, invalid("password is required")
	}
	s := models.Specialist{
		ID:        uuid.NewString(),
		FullName:  in.FullName,
		Email:     in.Email,
		Password:  in.Password,
		Role:      in.Role,
		Category:  in.Category,
		Phone:     in.Phone,
		CreatedAt: now,
		Active:    true,
	}
	return append(slices.Clone(list), s), s, nil
}

// UpdateSpecialist edits a profile; an empty password keeps the old one.
func UpdateSpecialist(list []models.Specialist, id string, in SpecialistInput) ([]models.Specialist, models.Specialist, error) {
	if err := normSpecialistInput(list, id, &in); err != nil {
		return nil, models.Specialist{}, err
	}
	return updateSpecialist(list, id, func(s *models.Specialist) {
		s.FullName = in.FullName
		s.Email = in.Email
		if in.Password != "" {
			s.Password = in.Password
		}
		s.Role = in.Role
		s.Category = in.Category
		s.Phone = in.Phone
	})
}

// SetSpecialistActive deactivates or reactivates an account. The
// deactivation time is stamped once and cleared on reactivation.
func SetSpecialistActive(list []models.Specialist, id string, active bool, now time.Time) ([]models.Specialist, models.Specialist, error) {
	return updateSpecialist(list, id, func(s *models.Specialist) {
		switch {
		case active:
			s.Active = true
			s.DeactivatedAt = nil
		case s.Active:
			s.Active = false
			s.DeactivatedAt = &now
		}
	})
}

// Authenticate matches plaintext credentials against the specialist list.
func Authenticate(list []models.Specialist, email, password string) (models.Specialist, error) {
	e, _ := NormEmail(email)
	for _, s := range list {
		if s.Email != e || s.Password != password {
			continue
		}
		if !s.Active {
			return models.Specialist{}, ErrInactive
		}
		return s, nil
	}
	return models.Specialist{}, ErrInvalidCredentials
}

func updateSpecialist(list []models.Specialist, id string, fn func(*models.Specialist)) ([]models.Specialist, models.Specialist, error) {
	i := slices.IndexFunc(list, func(s models.Specialist) bool { return s.ID == id })
	if i < 0 {
		return nil, models.Specialist{}, notFound("specialist", id)
	}
	next := slices.Clone(list)
	fn(&next[i])
	return next, next[i], nil
}

func normSpecialistInput(list []models.Specialist, selfID string, in *SpecialistInput) error {
	in.FullName = strings.TrimSpace(in.FullName)
	if err := Validate(*in); err != nil {
		return err
	}
	email, ok := NormEmail(in.Email)
	if !ok {
		return invalid("email must be a valid email")
	}
	in.Email = email
	for _, s := range list {
		if s.ID != selfID && s.Email == email {
			return ErrDuplicateEmail
		}
	}
	if in.Phone != "" {
		in.Phone = NormPhone(in.Phone)
	}
	return nil
}
