package notify

import (
	"context"
	"sync"
	"time"

	"github.com/harborvet/vetpms/pkg/logging"
)

// ReminderSender is the part of the Service the worker drives.
type ReminderSender interface {
	SendReminder(ctx context.Context, job ReminderJob) error
}

// Worker drains the reminder queue. Jobs whose send window has not opened
// yet are requeued; jobs for visits already past are dropped.
type Worker struct {
	queue     Queue
	sender    ReminderSender
	leadTime  time.Duration
	pollEvery time.Duration
	logger    *logging.Logger

	wg sync.WaitGroup
}

// NewWorker creates a reminder worker.
func NewWorker(queue Queue, sender ReminderSender, leadTime, pollEvery time.Duration, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if leadTime <= 0 {
		leadTime = 24 * time.Hour
	}
	if pollEvery <= 0 {
		pollEvery = 30 * time.Second
	}
	return &Worker{
		queue:     queue,
		sender:    sender,
		leadTime:  leadTime,
		pollEvery: pollEvery,
		logger:    logger,
	}
}

// Start launches the polling loop in a goroutine and returns.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Wait blocks until the worker has stopped.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	w.logger.Info("reminder worker started", "lead_time", w.leadTime.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopping")
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, 10, 10)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("reminder receive failed", "error", err)
			w.sleep(ctx)
			continue
		}
		if len(messages) == 0 {
			continue
		}

		allDeferred := true
		for _, msg := range messages {
			if !w.process(ctx, msg) {
				continue
			}
			allDeferred = false
		}
		// Every message came back not yet due; back off so the requeue
		// cycle does not spin.
		if allDeferred {
			w.sleep(ctx)
		}
	}
}

// process handles one message and reports whether it was acted on (sent or
// dropped) rather than deferred.
func (w *Worker) process(ctx context.Context, msg Message) bool {
	job, err := DecodeReminderJob(msg.Body)
	if err != nil {
		// Poison message; drop it rather than loop forever.
		w.logger.Error("reminder job decode failed", "error", err, "message_id", msg.ID)
		w.delete(ctx, msg)
		return true
	}

	now := time.Now()
	if now.After(job.StartTime) {
		w.logger.Info("reminder dropped, visit already started", "appointment_id", job.AppointmentID)
		w.delete(ctx, msg)
		return true
	}
	if now.Before(job.StartTime.Add(-w.leadTime)) {
		// Not due yet: put it back and acknowledge the old copy.
		if err := w.queue.Send(ctx, msg.Body); err != nil {
			w.logger.Error("reminder requeue failed", "error", err, "appointment_id", job.AppointmentID)
			return false
		}
		w.delete(ctx, msg)
		return false
	}

	if err := w.sender.SendReminder(ctx, job); err != nil {
		// Leave the message for redelivery.
		w.logger.Error("reminder send failed", "error", err, "appointment_id", job.AppointmentID)
		return true
	}
	w.delete(ctx, msg)
	return true
}

func (w *Worker) delete(ctx context.Context, msg Message) {
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("reminder ack failed", "error", err, "message_id", msg.ID)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollEvery):
	}
}
