package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/mulyahr/timesheet-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, timesheetHandler *TimesheetHandler, leaveHandler *LeaveHandler, reportHandler *ReportHandler, attachmentHandler *AttachmentHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Timesheet routes
	timesheets := api.Group("/timesheets")
	timesheets.POST("/entries", timesheetHandler.SubmitEntries)
	timesheets.GET("", timesheetHandler.List)
	timesheets.POST("/month/submit", timesheetHandler.SubmitMonth)
	timesheets.POST("/month/approve", timesheetHandler.ApproveMonth)
	timesheets.POST("/month/reject", timesheetHandler.RejectMonth)
	timesheets.GET("/:id", timesheetHandler.GetByID)
	timesheets.PATCH("/:id/entries", timesheetHandler.MergeEntries)
	timesheets.POST("/:id/submit", timesheetHandler.Submit)
	timesheets.POST("/:id/approve", timesheetHandler.Approve)
	timesheets.POST("/:id/reject", timesheetHandler.Reject)
	timesheets.POST("/:id/attachments", attachmentHandler.Upload)
	timesheets.GET("/:id/attachments", attachmentHandler.List)

	// Attachment routes
	attachments := api.Group("/attachments")
	attachments.GET("/:id", attachmentHandler.Download)
	attachments.GET("/:id/thumbnail", attachmentHandler.Thumbnail)

	// Leave routes
	leave := api.Group("/leave")
	leave.GET("/balance", leaveHandler.GetOwnBalance)
	leave.GET("/balance/:employeeId", leaveHandler.GetBalance)
	leave.POST("/initialize", leaveHandler.Initialize)

	// Report routes
	reports := api.Group("/reports")
	reports.GET("/monthly/:year/:month", reportHandler.MonthlyReport)
	reports.GET("/employees/:employeeId/:year/:month", reportHandler.EmployeeMonth)
	reports.POST("/month-end/:year/:month", reportHandler.RunMonthEnd)

	// WebSocket endpoint authenticates via query token, outside the JWT
	// header middleware
	e.GET("/ws", wsHandler.HandleWS)
}
