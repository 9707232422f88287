package services

import "github.com/lojf/kidcare/internal/models"

// Directory resolves display names at read time, so renaming a child or
// specialist never leaves stale names on schedule entries.
type Directory struct {
	children    map[string]models.Child
	specialists map[string]models.Specialist
	blocks      map[string]models.SubscriptionBlock
}

func NewDirectory(children []models.Child, specialists []models.Specialist, blocks []models.SubscriptionBlock) Directory {
	d := Directory{
		children:    make(map[string]models.Child, len(children)),
		specialists: make(map[string]models.Specialist, len(specialists)),
		blocks:      make(map[string]models.SubscriptionBlock, len(blocks)),
	}
	for _, c := range children {
		d.children[c.ID] = c
	}
	for _, s := range specialists {
		d.specialists[s.ID] = s
	}
	for _, b := range blocks {
		d.blocks[b.ID] = b
	}
	return d
}

func (d Directory) Child(id string) (models.Child, bool) {
	c, ok := d.children[id]
	return c, ok
}

func (d Directory) ChildName(id string) string { return d.children[id].FullName }

func (d Directory) SpecialistName(id string) string { return d.specialists[id].FullName }

// EntryView is a schedule entry as operators see it.
type EntryView struct {
	Entry          models.ScheduleEntry `json:"entry"`
	ChildName      string               `json:"childName"`
	SpecialistName string               `json:"specialistName"`
	IsPaid         bool                 `json:"isPaid"`
	// SessionsCompleted of TotalSessions is "occurrence N of M" in the block.
	SessionsCompleted int              `json:"sessionsCompleted,omitempty"`
	TotalSessions     int              `json:"totalSessions,omitempty"`
	BlockKind         models.BlockKind `json:"blockKind,omitempty"`
	BlockActivated    bool             `json:"blockActivated,omitempty"`
}

func (d Directory) View(e models.ScheduleEntry) EntryView {
	v := EntryView{
		Entry:          e,
		ChildName:      d.ChildName(e.ChildID),
		SpecialistName: d.SpecialistName(e.SpecialistID),
		IsPaid:         e.IsPaid(),
	}
	if b, ok := d.blocks[models.BlockID(e.Plan)]; ok {
		v.SessionsCompleted = e.SessionNumber
		v.TotalSessions = b.Size
		v.BlockKind = b.Kind
		v.BlockActivated = b.Activated()
	}
	return v
}

func (d Directory) Views(entries []models.ScheduleEntry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, d.View(e))
	}
	return out
}
