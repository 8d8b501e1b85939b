package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskline/taskline-backend/internal/authctx"
	"github.com/taskline/taskline-backend/internal/dto"
	"github.com/taskline/taskline-backend/internal/models"
	"github.com/taskline/taskline-backend/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// ListTasks handles GET /tasks - returns the caller's tasks, newest
// first, each with its nodes in display order.
func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	tasks, err := h.taskService.ListTasks(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch tasks",
		})
	}

	resp := make([]dto.TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = toTaskResponse(&tasks[i])
	}
	return c.JSON(resp)
}

// CreateTask handles POST /tasks - creates a task with one default node.
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	task, err := h.taskService.CreateTask(userID, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrNameRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Task name is required",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to create task",
		})
	}

	resp := toTaskResponse(task)
	return c.JSON(resp)
}

// UpdateNode handles PATCH /nodes - partial update of a node's
// description, note, or completion state.
func (h *TaskHandler) UpdateNode(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.UpdateNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	nodeID, err := uuid.Parse(req.NodeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Node ID is required",
		})
	}

	if err := h.taskService.UpdateNode(userID, nodeID, &req); err != nil {
		return nodeErrorResponse(c, err, "Failed to update node")
	}

	return c.JSON(fiber.Map{"success": true})
}

// DeleteNode handles DELETE /nodes?nodeId=... - removes a node unless it
// is the task's last one.
func (h *TaskHandler) DeleteNode(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	nodeID, err := uuid.Parse(c.Query("nodeId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Node ID is required",
		})
	}

	if err := h.taskService.DeleteNode(userID, nodeID); err != nil {
		if errors.Is(err, services.ErrLastNode) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Task must have at least one node",
			})
		}
		return nodeErrorResponse(c, err, "Failed to delete node")
	}

	return c.JSON(fiber.Map{"success": true})
}

// InsertNode handles POST /nodes - inserts a new node immediately after
// the given node, shifting later siblings up by one.
func (h *TaskHandler) InsertNode(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.InsertNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Task ID and After Node ID are required",
		})
	}
	afterNodeID, err := uuid.Parse(req.AfterNodeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Task ID and After Node ID are required",
		})
	}

	node, err := h.taskService.InsertNodeAfter(userID, taskID, afterNodeID)
	if err != nil {
		return nodeErrorResponse(c, err, "Failed to insert node")
	}

	return c.JSON(toNodeResponse(node))
}

// CompleteTask handles POST /tasks/complete - completes every incomplete
// node in the task with one shared timestamp.
func (h *TaskHandler) CompleteTask(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CompleteTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Task ID is required",
		})
	}

	if err := h.taskService.CompleteTask(userID, taskID); err != nil {
		return nodeErrorResponse(c, err, "Failed to complete task")
	}

	return c.JSON(fiber.Map{"success": true})
}

// nodeErrorResponse maps service errors shared by the node operations.
// Ownership misses surface as a generic 401 so foreign ids are not
// distinguishable from missing ones.
func nodeErrorResponse(c *fiber.Ctx, err error, fallback string) error {
	if errors.Is(err, services.ErrNotOwner) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	if errors.Is(err, services.ErrNodeNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Node not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: fallback,
	})
}

func toTaskResponse(task *models.Task) dto.TaskResponse {
	nodes := make([]dto.NodeResponse, len(task.Nodes))
	for i := range task.Nodes {
		nodes[i] = toNodeResponse(&task.Nodes[i])
	}
	return dto.TaskResponse{
		ID:        task.ID.String(),
		Name:      task.Name,
		Nodes:     nodes,
		CreatedAt: task.CreatedAt,
	}
}

func toNodeResponse(node *models.TaskNode) dto.NodeResponse {
	return dto.NodeResponse{
		ID:          node.ID.String(),
		Description: node.Description,
		IsCompleted: node.IsCompleted,
		CompletedAt: node.CompletedAt,
		Note:        node.Note,
		Order:       node.Order,
	}
}
