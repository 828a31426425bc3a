package tasks

import (
	"context"

	"github.com/google/uuid"

	"github.com/eventops/backend/internal/models"
)

// Store is the persistence surface of the task service. Implemented by
// Repository over pgx; tests use an in-memory fake.
type Store interface {
	// CreateTask inserts a task.
	CreateTask(ctx context.Context, t *models.Task) error
	// Task returns an undeleted task by ID, or nil.
	Task(ctx context.Context, id uuid.UUID) (*models.Task, error)
	// TasksByEvent returns undeleted tasks of the event, optionally filtered
	// to the given departments (nil means no filter).
	TasksByEvent(ctx context.Context, eventID uuid.UUID, departmentIDs []uuid.UUID) ([]models.Task, error)
	// UpdateTask writes the mutable fields.
	UpdateTask(ctx context.Context, t *models.Task) error
	// SetStatus writes the status unconditionally.
	SetStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) error
	// CompleteIfUnblocked sets status done only when no undeleted blocker is
	// still incomplete. The check and the write are one statement; reports
	// whether the transition happened.
	CompleteIfUnblocked(ctx context.Context, id uuid.UUID) (bool, error)
	// SoftDeleteTask marks the task deleted.
	SoftDeleteTask(ctx context.Context, id uuid.UUID) error

	// AddDependency inserts a blocker edge; duplicates surface as
	// apperr.ErrConflict.
	AddDependency(ctx context.Context, d *models.TaskDependency) error
	// RemoveDependency deletes a blocker edge.
	RemoveDependency(ctx context.Context, blockerID, blockedID uuid.UUID) error
	// DependenciesOf returns all edges blocking the task.
	DependenciesOf(ctx context.Context, blockedID uuid.UUID) ([]models.TaskDependency, error)
	// IncompleteBlockers counts undeleted blockers of the task not yet done.
	IncompleteBlockers(ctx context.Context, blockedID uuid.UUID) (int, error)
}
