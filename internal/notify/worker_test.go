package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	jobs []ReminderJob
	err  error
}

func (r *recordingSender) SendReminder(_ context.Context, job ReminderJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func enqueue(t *testing.T, q Queue, job ReminderJob) {
	t.Helper()
	body, err := job.Encode()
	require.NoError(t, err)
	require.NoError(t, q.Send(context.Background(), body))
}

func TestWorkerSendsDueReminder(t *testing.T) {
	queue := NewMemoryQueue(4)
	sender := &recordingSender{}
	w := NewWorker(queue, sender, 24*time.Hour, time.Second, nil)

	job := ReminderJob{
		AppointmentID: uuid.New(),
		ClinicID:      uuid.New(),
		PatientName:   "Biscuit",
		StartTime:     time.Now().Add(2 * time.Hour), // inside the 24h window
	}
	enqueue(t, queue, job)

	msgs, err := queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	acted := w.process(context.Background(), msgs[0])
	assert.True(t, acted)
	require.Equal(t, 1, sender.count())
	assert.Equal(t, job.AppointmentID, sender.jobs[0].AppointmentID)
}

func TestWorkerRequeuesNotYetDueJob(t *testing.T) {
	queue := NewMemoryQueue(4)
	sender := &recordingSender{}
	w := NewWorker(queue, sender, time.Hour, time.Second, nil)

	job := ReminderJob{
		AppointmentID: uuid.New(),
		StartTime:     time.Now().Add(48 * time.Hour), // well outside a 1h window
	}
	enqueue(t, queue, job)

	msgs, err := queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	acted := w.process(context.Background(), msgs[0])
	assert.False(t, acted, "a deferred job reports no action so the loop backs off")
	assert.Equal(t, 0, sender.count())

	// The job went back on the queue for a later pass.
	msgs, err = queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestWorkerDropsPastAppointment(t *testing.T) {
	queue := NewMemoryQueue(4)
	sender := &recordingSender{}
	w := NewWorker(queue, sender, 24*time.Hour, time.Second, nil)

	job := ReminderJob{
		AppointmentID: uuid.New(),
		StartTime:     time.Now().Add(-time.Hour),
	}
	enqueue(t, queue, job)

	msgs, err := queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	acted := w.process(context.Background(), msgs[0])
	assert.True(t, acted)
	assert.Equal(t, 0, sender.count())
}

func TestWorkerDropsPoisonMessage(t *testing.T) {
	queue := NewMemoryQueue(4)
	sender := &recordingSender{}
	w := NewWorker(queue, sender, 24*time.Hour, time.Second, nil)

	require.NoError(t, queue.Send(context.Background(), "not json"))
	msgs, err := queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	acted := w.process(context.Background(), msgs[0])
	assert.True(t, acted)
	assert.Equal(t, 0, sender.count())
}

func TestWorkerStartDrainsQueueEndToEnd(t *testing.T) {
	queue := NewMemoryQueue(4)
	sender := &recordingSender{}
	w := NewWorker(queue, sender, 24*time.Hour, 10*time.Millisecond, nil)

	enqueue(t, queue, ReminderJob{
		AppointmentID: uuid.New(),
		StartTime:     time.Now().Add(time.Hour),
	})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	require.Eventually(t, func() bool { return sender.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	w.Wait()
}
