package controller

import (
	"corevai-be/internal/dto"
	"corevai-be/internal/pkg/serverutils"
	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IProjectController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Conversations(ctx *fiber.Ctx) error
}

type projectController struct {
	service service.IProjectService
}

func NewProjectController(service service.IProjectService) IProjectController {
	return &projectController{service: service}
}

func (c *projectController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/projects", serverutils.JwtMiddleware)
	h.Get("/", c.List)
	h.Post("/", c.Create)
	h.Patch("/:id", c.Update)
	h.Delete("/:id", c.Delete)
	h.Get("/:id/conversations", c.Conversations)
}

func (c *projectController) List(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	res, err := c.service.List(ctx.Context(), userId)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *projectController) Create(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	var req dto.CreateProjectRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.Context(), userId, &req)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *projectController) Update(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	projectId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fail(ctx, service.ErrNotFound)
	}

	var req dto.UpdateProjectRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}
	req.Id = projectId

	res, err := c.service.Update(ctx.Context(), userId, &req)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *projectController) Delete(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	projectId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fail(ctx, service.ErrNotFound)
	}

	if err := c.service.Delete(ctx.Context(), userId, projectId); err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{"ok": true})
}

func (c *projectController) Conversations(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	projectId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fail(ctx, service.ErrNotFound)
	}

	res, err := c.service.Conversations(ctx.Context(), userId, projectId)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}
