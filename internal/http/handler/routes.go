package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docgate/internal/logging"
	"docgate/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// db may be nil when metadata is kept in memory.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, log *logging.Logger) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Document access gateway. Get also answers HEAD.
	app.Get("/download/document/:filename", DownloadDocument(docSvc, log))
	app.Get("/uploads/*", ServeUpload(docSvc, log))

	app.Get("/documents", ListDocuments(docSvc, log))
	app.Post("/documents", UploadDocument(docSvc, log))
	app.Get("/documents/:id", GetDocument(docSvc, log))

	app.Get("/swagger/*", SwaggerUI())
}
