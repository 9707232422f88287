package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lojf/kidcare/internal/handlers"
)

func Router(api *handlers.API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handlers.Health)

	r.Route("/api", func(ar chi.Router) {
		// Auth endpoints (public)
		ar.Post("/login", api.Login)
		ar.Post("/logout", api.Logout)

		ar.Group(func(sr chi.Router) {
			sr.Use(api.RequireSpecialist)

			sr.Get("/me", api.Me)
			sr.Get("/specialists", api.ListSpecialists)

			// Children
			sr.Get("/children", api.ListChildren)
			sr.Post("/children", api.CreateChild)
			sr.Get("/children/{id}", api.GetChild)
			sr.Put("/children/{id}", api.UpdateChild)
			sr.Post("/children/{id}/archive", api.SetChildArchived(true))
			sr.Post("/children/{id}/restore", api.SetChildArchived(false))
			sr.Post("/children/{id}/sessions", api.AddSession)
			sr.Post("/children/{id}/sessions/{sessionID}/exercises/{exerciseID}/photos", api.AddPhoto)
			sr.Post("/children/{id}/reports", api.AddReport)
			sr.Get("/children/{id}/statistics", api.ChildStatistics)
			sr.Get("/children/{id}/history", api.ChildHistory)
			sr.Get("/children/{id}/history/{historyID}/qr.png", api.HistoryQR)
			sr.Post("/children/{id}/messages", api.PrepareMessage)

			// Schedule
			sr.Get("/schedule", api.ListSchedule)
			sr.Post("/schedule", api.CreateEntry)
			sr.Get("/schedule/{id}", api.GetEntry)
			sr.Put("/schedule/{id}", api.UpdateEntry)
			sr.Delete("/schedule/{id}", api.DeleteEntry)
			sr.Post("/schedule/{id}/complete", api.CompleteEntry)
			sr.Post("/schedule/{id}/absent", api.AbsentEntry)
			sr.Post("/schedule/{id}/reschedule", api.RescheduleEntry)
			sr.Post("/schedule/{id}/payment", api.RecordPayment)
			sr.Delete("/schedule/{id}/payment", api.ClearPayment)
			sr.Post("/schedule/{id}/subscription", api.OpenSubscription)
			sr.Post("/schedule/{id}/prepaid", api.ActivatePrepaid)
			sr.Post("/schedule/{id}/attach", api.AttachEntry)

			// Subscription blocks
			sr.Get("/blocks", api.ListBlocks)
			sr.Get("/blocks/{id}", api.GetBlock)
			sr.Post("/blocks/{id}/resize", api.ResizeBlock)

			// Notifications
			sr.Get("/notifications", api.ListNotifications)
			sr.Post("/notifications/{id}/read", api.MarkNotificationRead)

			// Admin only
			sr.Group(func(ag chi.Router) {
				ag.Use(handlers.RequireAdmin)

				ag.Post("/specialists", api.CreateSpecialist)
				ag.Put("/specialists/{id}", api.UpdateSpecialist)
				ag.Post("/specialists/{id}/deactivate", api.SetSpecialistActive(false))
				ag.Post("/specialists/{id}/activate", api.SetSpecialistActive(true))

				ag.Get("/statistics", api.PracticeStatistics)
				ag.Get("/statistics/export", api.ExportStatistics)

				ag.Get("/salaries", api.ListSalaries)
				ag.Post("/salaries", api.AddSalary)
				ag.Delete("/salaries/{id}", api.DeleteSalary)
				ag.Get("/expenses", api.ListExpenses)
				ag.Post("/expenses", api.AddExpense)
				ag.Delete("/expenses/{id}", api.DeleteExpense)
				ag.Get("/settings/expenses", api.GetExpenseSettings)
				ag.Put("/settings/expenses", api.UpdateExpenseSettings)

				ag.Get("/rules", api.ListRules)
				ag.Post("/rules", api.CreateRule)
				ag.Put("/rules/{id}", api.UpdateRule)
				ag.Delete("/rules/{id}", api.DeleteRule)

				ag.Post("/schedule/import", api.ImportLegacySchedule)
			})
		})
	})

	return r
}
