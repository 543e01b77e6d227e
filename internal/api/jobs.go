package api

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ivlev/audiogram/internal/hooks"
	"github.com/ivlev/audiogram/internal/scheduler"
	"github.com/ivlev/audiogram/internal/storage"
)

// cleanupJob убирает рабочие файлы задачи. Экспорт успешной задачи
// остаётся для GET /video/{id}; всё остальное удаляется, если не задан
// keep_tasks.
type cleanupJob struct {
	scheduler.Job
	files *storage.FileManager
	keep  bool
}

func (j *cleanupJob) Render(ctx context.Context, alive func() bool) error {
	err := j.Job.Render(ctx, alive)
	if j.keep {
		return err
	}
	if err != nil {
		_ = j.files.RemoveTask(j.ID())
		return err
	}
	_ = os.RemoveAll(filepath.Join(j.files.TaskDir(j.ID()), "resources"))
	return nil
}

// Discard is called for a job cancelled before it started.
func (j *cleanupJob) Discard() {
	if !j.keep {
		_ = j.files.RemoveTask(j.ID())
	}
}

func (j *cleanupJob) Notifier() hooks.Notifier {
	if rep, ok := j.Job.(scheduler.Reporter); ok {
		return rep.Notifier()
	}
	return hooks.Nop{}
}

var (
	_ scheduler.Reporter  = (*cleanupJob)(nil)
	_ scheduler.Discarder = (*cleanupJob)(nil)
)
