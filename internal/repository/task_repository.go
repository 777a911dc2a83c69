package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"smart-reminder/internal/model"
)

// TaskRepository handles CRUD for planner records.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Insert stores task and fills in its ID.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return storageErr("create task", err)
	}
	return nil
}

// Update overwrites every column of an existing record, including zero
// values such as a cleared notification handle.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	if task.ID == 0 {
		return storageErr("update task", errors.New("missing id"))
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Select("*").Omit("id", "created_at").
		Updates(task)
	if res.Error != nil {
		return storageErr("update task", res.Error)
	}
	if res.RowsAffected == 0 {
		return storageErr("update task", ErrNotFound)
	}
	return nil
}

// Delete removes a record regardless of it being recurring or not.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return storageErr("delete task", res.Error)
	}
	if res.RowsAffected == 0 {
		return storageErr("delete task", ErrNotFound)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, storageErr("find task", err)
	}
	return &task, nil
}

// Query returns the records matching p ordered by anchor date, then id.
func (r *TaskRepository) Query(ctx context.Context, p model.Predicate) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Scopes(predicateScope(p)).
		Order("anchor_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, storageErr("query tasks", err)
	}
	return tasks, nil
}

func predicateScope(p model.Predicate) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.UserID != 0 {
			db = db.Where("user_id = ?", p.UserID)
		}
		if p.AnchorDate != "" {
			db = db.Where("anchor_date = ?", p.AnchorDate)
		}
		if p.AnchorDateAfter != "" {
			db = db.Where("anchor_date > ?", p.AnchorDateAfter)
		}
		if p.Status != "" {
			db = db.Where("status = ?", p.Status)
		}
		if p.ExcludeStatus != "" {
			db = db.Where("status != ?", p.ExcludeStatus)
		}
		if p.Kind != "" {
			db = db.Where("kind = ?", p.Kind)
		}
		if p.ExcludeKind != "" {
			db = db.Where("kind != ?", p.ExcludeKind)
		}
		return db
	}
}
