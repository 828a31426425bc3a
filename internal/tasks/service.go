// Package tasks owns task CRUD, dependency edges, and the completion gate.
// All reads and writes are filtered through the caller's resolved department
// scope; a task outside scope is indistinguishable from a missing one.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/apperr"
)

// ScopeResolver yields the department visibility of a principal in an event.
type ScopeResolver interface {
	Resolve(ctx context.Context, eventID uuid.UUID, p rbac.Principal, moduleKey string) (rbac.Scope, error)
}

// Service implements the task domain operations.
type Service struct {
	store  Store
	scopes ScopeResolver
	logger *zap.Logger
}

// NewService creates a task service.
func NewService(store Store, scopes ScopeResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, scopes: scopes, logger: logger}
}

// CreateTaskInput is the input for Create.
type CreateTaskInput struct {
	EventID      uuid.UUID
	DepartmentID uuid.UUID
	Title        string
	Description  string
	AssigneeID   *uuid.UUID
	DueAt        *time.Time
}

// UpdateTaskInput carries the mutable fields; nil means unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	AssigneeID  *uuid.UUID
	DueAt       *time.Time
}

// Create inserts a task in a department the actor can see.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, in CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("task title required: %w", apperr.ErrBadRequest)
	}
	scope, err := s.scopes.Resolve(ctx, in.EventID, actor, models.ModuleTasks)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}
	if !scope.Contains(in.DepartmentID) {
		return nil, fmt.Errorf("department out of scope: %w", apperr.ErrForbidden)
	}

	t := &models.Task{
		EventID:      in.EventID,
		DepartmentID: in.DepartmentID,
		Title:        in.Title,
		Description:  in.Description,
		Status:       models.TaskStatusOpen,
		CreatedBy:    actor.UserID,
		AssigneeID:   in.AssigneeID,
		DueAt:        in.DueAt,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// List returns the tasks of the event visible to the actor.
func (s *Service) List(ctx context.Context, actor rbac.Principal, eventID uuid.UUID) ([]models.Task, error) {
	scope, err := s.scopes.Resolve(ctx, eventID, actor, models.ModuleTasks)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}
	if scope.Empty() {
		return []models.Task{}, nil
	}
	var deptFilter []uuid.UUID
	if !scope.All {
		deptFilter = scope.DepartmentIDs
	}
	list, err := s.store.TasksByEvent(ctx, eventID, deptFilter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return list, nil
}

// Get returns a task the actor can see.
func (s *Service) Get(ctx context.Context, actor rbac.Principal, taskID uuid.UUID) (*models.Task, error) {
	return s.visibleTask(ctx, actor, taskID)
}

// Update writes the mutable fields of a visible task.
func (s *Service) Update(ctx context.Context, actor rbac.Principal, taskID uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	t, err := s.visibleTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, fmt.Errorf("task title required: %w", apperr.ErrBadRequest)
		}
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.AssigneeID != nil {
		t.AssigneeID = in.AssigneeID
	}
	if in.DueAt != nil {
		t.DueAt = in.DueAt
	}
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// SetStatus transitions a task. Completion runs through the dependency gate:
// the incomplete-blocker check and the status write are a single store
// operation, so two racing completions cannot both slip past a blocker.
func (s *Service) SetStatus(ctx context.Context, actor rbac.Principal, taskID uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	if !models.ValidTaskStatus(status) {
		return nil, fmt.Errorf("invalid task status %q: %w", status, apperr.ErrBadRequest)
	}
	t, err := s.visibleTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	if status == models.TaskStatusDone {
		ok, err := s.store.CompleteIfUnblocked(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("complete task: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("task has incomplete blockers: %w", apperr.ErrForbidden)
		}
	} else {
		if err := s.store.SetStatus(ctx, t.ID, status); err != nil {
			return nil, fmt.Errorf("set status: %w", err)
		}
	}
	t.Status = status
	return t, nil
}

// Delete soft-deletes a visible task.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, taskID uuid.UUID) error {
	t, err := s.visibleTask(ctx, actor, taskID)
	if err != nil {
		return err
	}
	if err := s.store.SoftDeleteTask(ctx, t.ID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// AddDependency records that blocker must be done before blocked. Both tasks
// must be visible and in the same event.
func (s *Service) AddDependency(ctx context.Context, actor rbac.Principal, blockerID, blockedID uuid.UUID) (*models.TaskDependency, error) {
	if blockerID == blockedID {
		return nil, fmt.Errorf("a task cannot block itself: %w", apperr.ErrBadRequest)
	}
	blocker, err := s.visibleTask(ctx, actor, blockerID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.visibleTask(ctx, actor, blockedID)
	if err != nil {
		return nil, err
	}
	if blocker.EventID != blocked.EventID {
		return nil, fmt.Errorf("tasks belong to different events: %w", apperr.ErrBadRequest)
	}

	d := &models.TaskDependency{BlockerID: blockerID, BlockedID: blockedID}
	if err := s.store.AddDependency(ctx, d); err != nil {
		return nil, fmt.Errorf("add dependency: %w", err)
	}
	return d, nil
}

// RemoveDependency deletes a blocker edge.
func (s *Service) RemoveDependency(ctx context.Context, actor rbac.Principal, blockerID, blockedID uuid.UUID) error {
	if _, err := s.visibleTask(ctx, actor, blockedID); err != nil {
		return err
	}
	if err := s.store.RemoveDependency(ctx, blockerID, blockedID); err != nil {
		return fmt.Errorf("remove dependency: %w", err)
	}
	return nil
}

// Dependencies lists the edges blocking a visible task.
func (s *Service) Dependencies(ctx context.Context, actor rbac.Principal, taskID uuid.UUID) ([]models.TaskDependency, error) {
	if _, err := s.visibleTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	deps, err := s.store.DependenciesOf(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}
	return deps, nil
}

// visibleTask loads the task and hides it behind NotFound when the actor's
// scope does not cover its department.
func (s *Service) visibleTask(ctx context.Context, actor rbac.Principal, taskID uuid.UUID) (*models.Task, error) {
	t, err := s.store.Task(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, apperr.ErrNotFound)
	}
	scope, err := s.scopes.Resolve(ctx, t.EventID, actor, models.ModuleTasks)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}
	if !scope.Contains(t.DepartmentID) {
		return nil, fmt.Errorf("task %s: %w", taskID, apperr.ErrNotFound)
	}
	return t, nil
}
