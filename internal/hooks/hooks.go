// Package hooks reports job lifecycle events to the outside world.
package hooks

import (
	"context"
	"errors"
)

type Status string

const (
	StatusQueued         Status = "QUEUED"
	StatusConvertedAudio Status = "CONVERTED_AUDIO"
	StatusDecodedAudio   Status = "DECODED_AUDIO"
	StatusRendering      Status = "RENDERING"
	StatusFinished       Status = "FINISHED"
	StatusError          Status = "ERROR"
	StatusCancelled      Status = "CANCELLED"
)

// Notifier receives lifecycle events of one or more jobs. Implementations
// must be safe for concurrent use; callers treat errors as non-fatal.
type Notifier interface {
	UpdateStatus(ctx context.Context, id string, status Status) error
	ReportError(ctx context.Context, id, message string) error
	// Deliver hands over the finished video at path.
	Deliver(ctx context.Context, id, path string) error
}

// Nop ignores every event.
type Nop struct{}

func (Nop) UpdateStatus(context.Context, string, Status) error { return nil }
func (Nop) ReportError(context.Context, string, string) error  { return nil }
func (Nop) Deliver(context.Context, string, string) error      { return nil }

// Multi fans each event out to all notifiers. Every notifier is called
// even if an earlier one fails.
type Multi []Notifier

func (m Multi) UpdateStatus(ctx context.Context, id string, status Status) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.UpdateStatus(ctx, id, status))
	}
	return errors.Join(errs...)
}

func (m Multi) ReportError(ctx context.Context, id, message string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.ReportError(ctx, id, message))
	}
	return errors.Join(errs...)
}

func (m Multi) Deliver(ctx context.Context, id, path string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Deliver(ctx, id, path))
	}
	return errors.Join(errs...)
}
