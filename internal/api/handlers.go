package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"

	"dashgrid/internal/domain"
)

// ============================================================
// Health Check Handlers
// ============================================================

func (s *Server) liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

func (s *Server) readiness(c fiber.Ctx) error {
	if err := s.catalog.Ping(c.Context()); err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func (s *Server) startup(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "started", "since": s.started.UTC().Format("2006-01-02T15:04:05Z")})
}

// ============================================================
// Dashboard Handlers
// ============================================================

func (s *Server) listDashboards(c fiber.Ctx) error {
	list, err := s.catalog.ListDashboards(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(list)
}

type dashboardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) createDashboard(c fiber.Ctx) error {
	var req dashboardRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "title required"})
	}
	d, err := s.catalog.CreateDashboard(c.Context(), req.Title, req.Description)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(d)
}

func (s *Server) getDashboard(c fiber.Ctx) error {
	d, err := s.catalog.FetchDashboard(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(d)
}

func (s *Server) updateDashboard(c fiber.Ctx) error {
	var req dashboardRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "title required"})
	}
	d, err := s.catalog.UpdateDashboard(c.Context(), c.Params("id"), req.Title, req.Description)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(d)
}

func (s *Server) deleteDashboard(c fiber.Ctx) error {
	if err := s.catalog.DeleteDashboard(c.Context(), c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ============================================================
// View Handlers
// ============================================================

func (s *Server) createView(c fiber.Ctx) error {
	var draft domain.Block
	if err := json.Unmarshal(c.Body(), &draft); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	delete(draft.Extra, "schema_version")

	b, err := s.catalog.CreateBlock(c.Context(), c.Params("dashboard"), draft)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(b)
}

func (s *Server) patchView(c fiber.Ctx) error {
	var patch map[string]any
	if err := json.Unmarshal(c.Body(), &patch); err != nil || patch == nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	b, err := s.catalog.PatchBlock(c.Context(), c.Params("dashboard"), c.Params("view"), patch)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(b)
}

func (s *Server) deleteView(c fiber.Ctx) error {
	if err := s.catalog.DeleteBlock(c.Context(), c.Params("dashboard"), c.Params("view")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidGeometry), errors.Is(err, domain.ErrInvalidBlock):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		s.logger.Error("catalog request failed", "method", c.Method(), "path", c.Path(), "err", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
