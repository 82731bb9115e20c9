// Package scheduler queues and executes background jobs over asynq. The only
// job today is transactional email dispatch: producers enqueue a template name
// plus context fields, and the worker renders and delivers the message so a
// slow or failing mail provider never blocks an HTTP request.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"concierge_backend/internal/email"
)

const TaskEmailDispatch = "email:dispatch"

// EmailDispatchPayload carries everything the worker needs to render and send
// one email. Fields holds the template's context values; QRContent, when set,
// is encoded into a PNG QR code and attached.
type EmailDispatchPayload struct {
	Template  email.Template    `json:"template"`
	ToEmail   string            `json:"toEmail"`
	ToName    string            `json:"toName"`
	Fields    map[string]string `json:"fields,omitempty"`
	QRContent string            `json:"qrContent,omitempty"`
}

func NewEmailDispatchTask(payload EmailDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEmailDispatch, data), nil
}

func ParseEmailDispatchPayload(task *asynq.Task) (EmailDispatchPayload, error) {
	var payload EmailDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EmailDispatchPayload{}, err
	}
	return payload, nil
}
