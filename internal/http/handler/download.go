package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"docgate/internal/logging"
	"docgate/internal/service"
)

const notFoundBody = "Document not found"

// DownloadDocument streams a document from the document root as an attachment.
//
// @Summary  Download a document
// @Tags     documents
// @Produce  octet-stream
// @Param    filename path string true "Stored filename"
// @Success  200 {file} binary
// @Failure  400 {object} errorPayload
// @Failure  404 {string} string "Document not found"
// @Failure  500 {object} errorPayload
// @Router   /download/document/{filename} [get]
func DownloadDocument(svc service.DocumentService, log *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Params("filename")
		name, err := url.PathUnescape(raw)
		if err != nil {
			return rejectPath(c, log, raw, "INVALID_FILENAME", "invalid filename")
		}

		obj, err := svc.Download(c.UserContext(), name)
		switch {
		case errors.Is(err, service.ErrInvalidFilename):
			return rejectPath(c, log, raw, "INVALID_FILENAME", "invalid filename")
		case errors.Is(err, service.ErrNotFound):
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return c.Status(fiber.StatusNotFound).SendString(notFoundBody)
		case err != nil:
			log.Error("document open failed", logging.Fields{
				"request_id": requestIDFromCtx(c),
				"filename":   name,
				"error":      err,
			})
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		c.Set(fiber.HeaderContentType, obj.ContentType)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+obj.Name+`"`)
		// fasthttp closes the body once it has been written or the connection fails.
		return c.SendStream(obj.Body, int(obj.Info.Size))
	}
}

// ServeUpload serves files under the document root for inline display (GET and HEAD).
//
// @Summary  Serve a stored file
// @Tags     documents
// @Param    path path string true "Path inside the document root"
// @Success  200 {file} binary
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /uploads/{path} [get]
func ServeUpload(svc service.DocumentService, log *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Params("*")
		p, err := url.PathUnescape(raw)
		if err != nil {
			return rejectPath(c, log, raw, "INVALID_PATH", "invalid path")
		}
		if p == "" {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
		}

		var obj *service.Object
		if c.Method() == fiber.MethodHead {
			obj, err = svc.StaticInfo(c.UserContext(), p)
		} else {
			obj, err = svc.Static(c.UserContext(), p)
		}
		switch {
		case errors.Is(err, service.ErrInvalidPath):
			return rejectPath(c, log, raw, "INVALID_PATH", "invalid path")
		case errors.Is(err, service.ErrNotFound):
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
		case err != nil:
			log.Error("static open failed", logging.Fields{
				"request_id": requestIDFromCtx(c),
				"path":       p,
				"error":      err,
			})
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		c.Set(fiber.HeaderContentType, obj.ContentType)
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		if !obj.Info.LastModified.IsZero() {
			c.Set(fiber.HeaderLastModified, obj.Info.LastModified.UTC().Format(http.TimeFormat))
		}
		if obj.Info.ETag != "" {
			c.Set(fiber.HeaderETag, obj.Info.ETag)
		}

		if obj.Body == nil {
			c.Status(fiber.StatusOK)
			c.Response().Header.SetContentLength(int(obj.Info.Size))
			return nil
		}
		return c.SendStream(obj.Body, int(obj.Info.Size))
	}
}

// rejectPath answers 400 and records the attempt as a security event.
func rejectPath(c *fiber.Ctx, log *logging.Logger, raw, code, message string) error {
	log.Warn("path rejected", logging.Fields{
		"event":      "path_rejected",
		"request_id": requestIDFromCtx(c),
		"ip":         c.IP(),
		"route":      c.Route().Path,
		"path":       raw,
	})
	return writeError(c, fiber.StatusBadRequest, code, message)
}
