package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/lojf/kidcare/internal/models"
	svc "github.com/lojf/kidcare/internal/services"
)

// StatsExporter writes per-child statistics rows to a downloadable file.
// A PDF renderer would plug in here.
type StatsExporter interface {
	ContentType() string
	Filename() string
	Export(w io.Writer, rows []ChildRow) error
}

// ChildRow pairs a child with its statistics for export.
type ChildRow struct {
	Child models.Child
	Stats svc.ChildStatistics
}

// CSVExporter writes one row per child.
type CSVExporter struct{}

func (CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVExporter) Filename() string    { return "statistics.csv" }

func (CSVExporter) Export(w io.Writer, rows []ChildRow) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"Code", "Child", "Archived", "Sessions", "Completed", "Absences",
		"Sick", "Family", "Other", "Cancelled", "AttendanceRate",
		"TotalPayments", "NetPayments", "Outstanding", "HeldOnAbsences",
	})
	for _, r := range rows {
		st := r.Stats
		_ = cw.Write([]string{
			r.Child.Code,
			r.Child.FullName,
			strconv.FormatBool(r.Child.Archived),
			strconv.Itoa(st.TotalSessions),
			strconv.Itoa(st.Completed),
			strconv.Itoa(st.TotalAbsences),
			strconv.Itoa(st.AbsencesByCategory[models.AbsenceSick]),
			strconv.Itoa(st.AbsencesByCategory[models.AbsenceFamily]),
			strconv.Itoa(st.AbsencesByCategory[models.AbsenceOther]),
			strconv.Itoa(st.AbsencesByCategory[models.AbsenceCancelled]),
			strconv.FormatFloat(st.AttendanceRate, 'f', 1, 64),
			st.TotalPayments.StringFixed(2),
			st.NetPayments.StringFixed(2),
			st.Outstanding.StringFixed(2),
			st.HeldOnAbsences.StringFixed(2),
		})
	}
	cw.Flush()
	return cw.Error()
}

// GET /api/statistics
func (a *API) PracticeStatistics(w http.ResponseWriter, r *http.Request) {
	ps := svc.ComputePracticeStatistics(
		a.Store.Schedule.Get(),
		a.Store.ExpenseSettings.Get(),
		a.Store.Salaries.Get(),
		a.Store.Expenses.Get(),
		a.now(),
	)
	writeJSON(w, http.StatusOK, ps)
}

// GET /api/statistics/export
func (a *API) ExportStatistics(w http.ResponseWriter, r *http.Request) {
	entries := a.Store.Schedule.Get()
	settings := a.Store.ExpenseSettings.Get()
	now := a.now()

	children := append([]models.Child(nil), a.Store.Children.Get()...)
	sort.SliceStable(children, func(i, j int) bool { return children[i].FullName < children[j].FullName })

	rows := make([]ChildRow, 0, len(children))
	for _, c := range children {
		rows = append(rows, ChildRow{Child: c, Stats: svc.ComputeChildStatistics(c.ID, entries, settings, now)})
	}

	w.Header().Set("Content-Type", a.Exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, a.Exporter.Filename()))
	if err := a.Exporter.Export(w, rows); err != nil {
		a.Log.Error("statistics export failed", "err", err)
	}
}
