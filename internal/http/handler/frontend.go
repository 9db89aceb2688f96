package handler

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// RegisterFrontend serves the built single-page app from dir and falls back to
// its index.html for any other GET, so client-side routes survive a reload.
// Register it after every API route.
func RegisterFrontend(app *fiber.App, dir string) {
	index := filepath.Join(dir, "index.html")

	app.Static("/", dir, fiber.Static{Index: "index.html"})
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendFile(index)
	})
}
