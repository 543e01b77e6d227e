// Package storage manages per-task directories on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
)

// Kind is a resource category; its value is the directory name.
type Kind string

const (
	KindAudio      Kind = "audio"
	KindImage      Kind = "images"
	KindBackground Kind = "background"
)

// ErrLocked is returned when another process owns the data directory.
var ErrLocked = errors.New("data directory is locked by another process")

// FileManager раскладывает ресурсы задачи по каталогам:
//
//	<root>/tasks/task_<id>/resources/{audio,images,background}
//	<root>/tasks/task_<id>/export/video.mp4
type FileManager struct {
	Root string
	lock *flock.Flock
}

func NewFileManager(root string) *FileManager {
	return &FileManager{
		Root: root,
		lock: flock.New(filepath.Join(root, ".audiogram.lock")),
	}
}

// Lock takes an exclusive lock on the data directory.
func (m *FileManager) Lock() error {
	if err := os.MkdirAll(m.Root, 0755); err != nil {
		return err
	}
	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

func (m *FileManager) Unlock() error {
	return m.lock.Unlock()
}

func (m *FileManager) TaskDir(id string) string {
	return filepath.Join(m.Root, "tasks", "task_"+filepath.Base(id))
}

func (m *FileManager) ResourceDir(kind Kind, id string) string {
	return filepath.Join(m.TaskDir(id), "resources", string(kind))
}

func (m *FileManager) ExportPath(id string) string {
	return filepath.Join(m.TaskDir(id), "export", "video.mp4")
}

// SpoolPath is the scratch file holding decoded PCM for muxing.
func (m *FileManager) SpoolPath(id string) string {
	return filepath.Join(m.TaskDir(id), "export", "audio.pcm")
}

// SetupTask creates the directory tree for a new task. It fails if the
// task directory already exists.
func (m *FileManager) SetupTask(id string) error {
	dir := m.TaskDir(id)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("task directory %s already exists", dir)
	}
	for _, d := range []string{
		m.ResourceDir(KindAudio, id),
		m.ResourceDir(KindImage, id),
		m.ResourceDir(KindBackground, id),
		filepath.Dir(m.ExportPath(id)),
	} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// SaveResource atomically writes an uploaded file and returns its path.
// Audio is always stored as audio.<ext>.
func (m *FileManager) SaveResource(kind Kind, id, name string, r io.Reader) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid resource name %q", name)
	}
	if kind == KindAudio {
		name = "audio" + strings.ToLower(filepath.Ext(name))
	}
	path := filepath.Join(m.ResourceDir(kind, id), name)

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return "", fmt.Errorf("create pending file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, r); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("atomically replace %s: %w", name, err)
	}
	return path, nil
}

// Resolve maps a resource name to its path inside the task directory.
// Absolute paths are returned untouched.
func (m *FileManager) Resolve(kind Kind, id, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.ResourceDir(kind, id), filepath.Base(name))
}

func (m *FileManager) RemoveTask(id string) error {
	return os.RemoveAll(m.TaskDir(id))
}

// LocalResolver resolves resource names relative to a directory; used for
// scene files rendered from the command line.
type LocalResolver struct {
	Dir string
}

func (r LocalResolver) Resolve(_ Kind, _ string, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.Dir, name)
}
