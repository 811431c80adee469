package handlers

import (
	"lead_flow_app_go/middleware"
	"lead_flow_app_go/models"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the login endpoint, the lead pages and the JSON API
func RegisterRoutes(e *echo.Echo) {
	e.POST("/login", LoginHandler, middleware.LoginRateLimiter.Middleware())

	protected := e.Group("")
	protected.Use(middleware.RequireAuth())
	protected.Use(middleware.AuditContext())
	{
		protected.POST("/logout", LogoutHandler)
		protected.GET("/api/me", GetCurrentUserHandler)

		// Pages
		protected.GET("/leads/:id", LeadPageHandler)
		protected.GET("/leads/:id/products", ProductSelectPageHandler)

		// Leads, with role checks in the service layer
		protected.POST("/api/leads", CreateLeadHandler)
		protected.GET("/api/leads", ListLeadsHandler)
		protected.GET("/api/leads/:id", GetLeadHandler)
		protected.PATCH("/api/leads/:id", UpdateLeadHandler)
		protected.POST("/api/leads/:id/status", ChangeLeadStatusHandler)
		protected.POST("/api/leads/:id/assign", AssignLeadHandler)
		protected.POST("/api/leads/:id/notes", AddLeadNoteHandler)
		protected.GET("/api/leads/:id/thread", GetLeadThreadHandler)

		// Verification workflow
		verification := protected.Group("/api/leads/:id/verification/:type")
		uploads := middleware.UploadRateLimiter.Middleware()
		{
			verification.POST("", CreateVerificationHandler, uploads)
			verification.GET("", GetVerificationHandler)
			verification.PUT("", UpdateVerificationHandler)
			verification.GET("/documents", ListDocumentsHandler)
			verification.POST("/documents", UploadDocumentsHandler, uploads)
			verification.POST("/bi-document", UploadBIDocumentHandler, uploads)
			verification.POST("/payment-screenshot", UploadPaymentScreenshotHandler, uploads)
			verification.POST("/recordings", UploadRecordingHandler, uploads)
			verification.POST("/insured/:personId/documents", UploadInsuredDocumentsHandler, uploads)
			verification.POST("/remarks", AddRemarkHandler)
			verification.GET("/remarks", ListRemarksHandler)
		}

		protected.GET("/api/verifications", ListVerificationsHandler)
		protected.GET("/api/renewals", ListRenewalsHandler)
		protected.POST("/api/exports/leads", ExportLeadsHandler)

		// Admin-only routes
		adminRoutes := protected.Group("/api/audit-logs")
		adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminRoutes.GET("", GetAuditLogsHandler)
			adminRoutes.GET("/:type/:id", GetResourceHistoryHandler)
		}
	}
}
