package models

import "time"

type Child struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	FullName  string `json:"fullName" validate:"required"`
	BirthDate Day    `json:"birthDate,omitempty" validate:"omitempty,day"`
	Gender    string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`

	MotherName  string `json:"motherName,omitempty"`
	MotherPhone string `json:"motherPhone,omitempty"`
	FatherName  string `json:"fatherName,omitempty"`
	FatherPhone string `json:"fatherPhone,omitempty"`
	Address     string `json:"address,omitempty"`

	// Free-text clinical fields.
	Diagnosis  string `json:"diagnosis,omitempty"`
	Complaints string `json:"complaints,omitempty"`
	Notes      string `json:"notes,omitempty"`

	Sessions       []Session       `json:"sessions"`
	MonthlyReports []MonthlyReport `json:"monthlyReports"`

	Archived   bool       `json:"archived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`

	// Append-only log of prepared outbound messages.
	NotificationHistory []NotificationHistoryEntry `json:"notificationHistory"`
}

// Session is one logged visit. It is immutable once saved except for
// photos appended to its exercises.
type Session struct {
	ID           string     `json:"id"`
	ChildID      string     `json:"childId"`
	Date         Day        `json:"date" validate:"required,day"`
	SpecialistID string     `json:"specialistId" validate:"required"`
	Exercises    []Exercise `json:"exercises" validate:"dive"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Exercise struct {
	ID          string  `json:"id"`
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description,omitempty"`
	Result      string  `json:"result,omitempty"`
	Photos      []Photo `json:"photos"`
}

// Photo is a base64-encoded image blob.
type Photo struct {
	ID          string    `json:"id"`
	ContentType string    `json:"contentType,omitempty"`
	Data        string    `json:"data" validate:"required,base64"`
	AddedAt     time.Time `json:"addedAt"`
}

type MonthlyReport struct {
	ID           string    `json:"id"`
	Month        string    `json:"month" validate:"required,month"` // 2006-01
	SpecialistID string    `json:"specialistId,omitempty"`
	Text         string    `json:"text" validate:"required"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Contact is one reachable parent of a child.
type Contact struct {
	Role  string // mother | father
	Name  string
	Phone string
}

// Contacts lists the parents that have a phone number on file, mother first.
func (c Child) Contacts() []Contact {
	var out []Contact
	if c.MotherPhone != "" {
		out = append(out, Contact{Role: "mother", Name: c.MotherName, Phone: c.MotherPhone})
	}
	if c.FatherPhone != "" {
		out = append(out, Contact{Role: "father", Name: c.FatherName, Phone: c.FatherPhone})
	}
	return out
}
