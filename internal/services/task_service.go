package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskline/taskline-backend/internal/database"
	"github.com/taskline/taskline-backend/internal/dto"
	"github.com/taskline/taskline-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNameRequired = errors.New("task name is required")
	ErrNodeNotFound = errors.New("node not found")
	// ErrNotOwner covers both "task missing" and "task owned by someone
	// else" so responses never reveal whether a foreign id exists.
	ErrNotOwner = errors.New("task not found or not owned by user")
	ErrLastNode = errors.New("task must have at least one node")
)

// defaultNodeDescription is the placeholder text every freshly inserted
// node starts with.
const defaultNodeDescription = "New node"

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// ownsTask is the single ownership predicate used by every mutating
// operation. It resolves the task under the caller's id; a miss for any
// reason maps to ErrNotOwner.
func ownsTask(tx *gorm.DB, userID uuid.UUID, taskID uuid.UUID) error {
	var task models.Task
	err := tx.Scopes(database.ForUser(userID)).First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotOwner
	}
	if err != nil {
		return fmt.Errorf("failed to resolve task owner: %w", err)
	}
	return nil
}

// CreateTask creates a task with its single default node at order 0.
func (s *TaskService) CreateTask(userID uuid.UUID, name string) (*models.Task, error) {
	if name == "" {
		return nil, ErrNameRequired
	}

	task := models.Task{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
	}
	node := models.TaskNode{
		ID:          uuid.New(),
		TaskID:      task.ID,
		Description: defaultNodeDescription,
		Order:       0,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		return tx.Create(&node).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	task.Nodes = []models.TaskNode{node}
	return &task, nil
}

// ListTasks returns every task owned by the user, newest first, with
// nodes sorted ascending by order.
func (s *TaskService) ListTasks(userID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.Scopes(database.ForUser(userID)).
		Order("created_at DESC").
		Preload("Nodes", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateNode applies a partial patch to a node. Description and note are
// independent; completion state and timestamp travel together, and
// clearing completion clears the timestamp.
func (s *TaskService) UpdateNode(userID uuid.UUID, nodeID uuid.UUID, req *dto.UpdateNodeRequest) error {
	var node models.TaskNode
	if err := s.db.First(&node, "id = ?", nodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNodeNotFound
		}
		return fmt.Errorf("failed to load node: %w", err)
	}

	if err := ownsTask(s.db, userID, node.TaskID); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Note != nil {
		updates["note"] = *req.Note
	}
	if req.IsCompleted != nil {
		updates["is_completed"] = *req.IsCompleted
		if *req.IsCompleted {
			completedAt := time.Now()
			if req.CompletedAt != nil {
				completedAt = *req.CompletedAt
			}
			updates["completed_at"] = completedAt
		} else {
			updates["completed_at"] = nil
		}
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.db.Model(&node).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	return nil
}

// DeleteNode removes a node unless it is the task's last one. Remaining
// siblings keep their order values; gaps are fine.
func (s *TaskService) DeleteNode(userID uuid.UUID, nodeID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var node models.TaskNode
		if err := tx.First(&node, "id = ?", nodeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNodeNotFound
			}
			return fmt.Errorf("failed to load node: %w", err)
		}

		if err := ownsTask(tx, userID, node.TaskID); err != nil {
			return err
		}

		var siblings []models.TaskNode
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("task_id = ?", node.TaskID).
			Find(&siblings).Error; err != nil {
			return fmt.Errorf("failed to count nodes: %w", err)
		}
		if len(siblings) <= 1 {
			return ErrLastNode
		}

		return tx.Delete(&node).Error
	})
}

// InsertNodeAfter inserts a fresh node immediately after the given node.
// The whole shift-then-insert runs in one transaction with the task's
// node rows locked, so concurrent inserts against the same task cannot
// produce duplicate order values.
func (s *TaskService) InsertNodeAfter(userID uuid.UUID, taskID uuid.UUID, afterNodeID uuid.UUID) (*models.TaskNode, error) {
	var created models.TaskNode
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := ownsTask(tx, userID, taskID); err != nil {
			return err
		}

		var after models.TaskNode
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND task_id = ?", afterNodeID, taskID).
			First(&after).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNodeNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load anchor node: %w", err)
		}

		// Open one slot at after.Order+1; everything at or past it moves
		// up by one, preserving relative order. If the anchor is the
		// last node this touches zero rows.
		slot := after.Order + 1
		if err := tx.Model(&models.TaskNode{}).
			Where(`task_id = ? AND "order" >= ?`, taskID, slot).
			UpdateColumn("order", gorm.Expr(`"order" + 1`)).Error; err != nil {
			return fmt.Errorf("failed to shift node orders: %w", err)
		}

		created = models.TaskNode{
			ID:          uuid.New(),
			TaskID:      taskID,
			Description: defaultNodeDescription,
			Order:       slot,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CompleteTask marks every incomplete node in the task completed with a
// single shared timestamp. Nodes completed earlier keep their original
// CompletedAt.
func (s *TaskService) CompleteTask(userID uuid.UUID, taskID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := ownsTask(tx, userID, taskID); err != nil {
			return err
		}

		now := time.Now()
		err := tx.Model(&models.TaskNode{}).
			Where("task_id = ? AND is_completed = ?", taskID, false).
			Updates(map[string]interface{}{
				"is_completed": true,
				"completed_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to complete task: %w", err)
		}
		return nil
	})
}
