package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Dispatcher starts the fan-out for a committed tender. It never fails from
// the caller's point of view.
type Dispatcher interface {
	TenderCreated(ctx context.Context, tenderID uuid.UUID)
}

// InlineDispatcher runs the fan-out before returning.
type InlineDispatcher struct {
	notifier *Notifier
}

func NewInlineDispatcher(n *Notifier) *InlineDispatcher {
	return &InlineDispatcher{notifier: n}
}

func (d *InlineDispatcher) TenderCreated(ctx context.Context, tenderID uuid.UUID) {
	// The response may already be on its way; don't let that cancel the insert.
	if _, err := d.notifier.FanOut(context.WithoutCancel(ctx), tenderID); err != nil {
		log.Printf("[notify] fan-out for tender %s failed: %v", tenderID, err)
	}
}

const TypeTenderCreated = "notify:tender_created"

type TenderCreatedPayload struct {
	TenderID uuid.UUID `json:"tender_id"`
}

func NewTenderCreatedTask(tenderID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(TenderCreatedPayload{TenderID: tenderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTenderCreated, data,
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	), nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqDispatcher hands the fan-out to the worker. If the task cannot be
// enqueued the fallback runs instead.
type AsynqDispatcher struct {
	client   Enqueuer
	fallback Dispatcher
}

func NewAsynqDispatcher(client Enqueuer, fallback Dispatcher) *AsynqDispatcher {
	return &AsynqDispatcher{client: client, fallback: fallback}
}

func (d *AsynqDispatcher) TenderCreated(ctx context.Context, tenderID uuid.UUID) {
	task, err := NewTenderCreatedTask(tenderID)
	if err == nil {
		var info *asynq.TaskInfo
		info, err = d.client.EnqueueContext(context.WithoutCancel(ctx), task)
		if err == nil {
			log.Printf("[notify] enqueued %s for tender %s (queue=%s)", info.ID, tenderID, info.Queue)
			return
		}
	}
	log.Printf("[notify] enqueue for tender %s failed, running inline: %v", tenderID, err)
	if d.fallback != nil {
		d.fallback.TenderCreated(ctx, tenderID)
	}
}

// TaskHandler processes TypeTenderCreated tasks on the worker.
type TaskHandler struct {
	notifier *Notifier
}

func NewTaskHandler(n *Notifier) *TaskHandler {
	return &TaskHandler{notifier: n}
}

func (h *TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p TenderCreatedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", TypeTenderCreated, err, asynq.SkipRetry)
	}
	if p.TenderID == uuid.Nil {
		return fmt.Errorf("empty tender id: %w", asynq.SkipRetry)
	}
	_, err := h.notifier.FanOut(ctx, p.TenderID)
	return err
}

// Register mounts the handler on mux.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.Handle(TypeTenderCreated, h)
}
