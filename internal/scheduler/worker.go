package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	qrcode "github.com/skip2/go-qrcode"

	"concierge_backend/internal/email"
	"concierge_backend/platform/config"
	"concierge_backend/platform/logger"
)

const qrImageSize = 256

// Worker consumes queued jobs. It renders email templates and delivers them
// through the configured sender, letting asynq handle retries on failure.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender email.Sender
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		sender: sender,
		log:    log,
	}

	mux.HandleFunc(TaskEmailDispatch, w.handleEmailDispatch)

	return w, nil
}

func (w *Worker) handleEmailDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEmailDispatchPayload(task)
	if err != nil {
		return err
	}

	err = DeliverEmail(ctx, w.sender, payload)
	w.log.EmailEvent(string(payload.Template), payload.ToEmail, err)
	return err
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// DeliverEmail renders and sends one dispatch payload. It is shared between
// the queue worker and the in-process fallback used when Redis is not
// configured.
func DeliverEmail(ctx context.Context, sender email.Sender, payload EmailDispatchPayload) error {
	subject, htmlContent, err := email.Render(payload.Template, payload.Fields)
	if err != nil {
		return err
	}

	var attachments []email.Attachment
	if payload.QRContent != "" {
		png, err := qrcode.Encode(payload.QRContent, qrcode.Medium, qrImageSize)
		if err != nil {
			return fmt.Errorf("encode qr attachment: %w", err)
		}
		attachments = append(attachments, email.Attachment{
			Content:  png,
			FileName: "registration-link.png",
			MIMEType: "image/png",
		})
	}

	return sender.Send(ctx, payload.ToEmail, payload.ToName, subject, htmlContent, attachments...)
}
