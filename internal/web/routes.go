package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	svc := s.services

	authHandler := handlers.NewAuthHandler(s.config, sessionManager)
	attendanceHandler := handlers.NewAttendanceHandler(svc.Ledger, svc.Gallery, svc.Session, svc.Metrics, svc.Log)
	statsHandler := handlers.NewStatsHandler(svc.Ledger, svc.Gallery, s.config.Attendance.StatsWindowDays)
	peopleHandler := handlers.NewPeopleHandler(svc.Ledger, svc.Gallery, svc.Purger, statsHandler, svc.Log)
	galleryHandler := handlers.NewGalleryHandler(svc.Gallery, s.config.Attendance.MatchThreshold, svc.Metrics, svc.Log)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", svc.Metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			// Attendance
			r.Get("/attendance", attendanceHandler.List)
			r.Get("/attendance/absentees", attendanceHandler.Absentees)
			r.Post("/attendance/mark", attendanceHandler.Mark)
			r.Post("/attendance/absences", attendanceHandler.RecordAbsences)
			r.Get("/attendance/export", attendanceHandler.Export)

			// Stats
			r.Get("/stats", statsHandler.Get)

			// People
			r.Get("/people", peopleHandler.List)
			r.Get("/classes", peopleHandler.Classes)
			r.Get("/gallery/duplicates", galleryHandler.Duplicates)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/gallery/reload", galleryHandler.Reload)
				r.Delete("/people/{id}/events", peopleHandler.PurgeEvents)
			})
		})
	})
}
