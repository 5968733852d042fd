package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/nu-admissions-api/pkg/jobs"
	"github.com/noah-isme/nu-admissions-api/pkg/mailer"
)

// JobTypeAdmissionNotice identifies admission e-mail jobs.
const JobTypeAdmissionNotice = "admission_notice"

// AdmissionNotice is the payload sent to a newly admitted applicant.
type AdmissionNotice struct {
	ApplicationID int64
	ReferenceNo   string
	FullName      string
	Email         string
	ProgramCode   string
	Batch         string
	UniversityID  string
	UGCID         string
	StudentID     int64
	AdmittedAt    time.Time
}

type noticeQueue interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

type noticeSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type noticeMetrics interface {
	RecordNotification(result string)
}

var admissionNoticeTemplate = template.Must(template.New("admission_notice").Parse(
	`<p>Dear {{.FullName}},</p>
<p>Congratulations, your application {{.ReferenceNo}} for {{.ProgramCode}} has been approved.</p>
<ul>
<li>University ID: <strong>{{.UniversityID}}</strong></li>
<li>UGC ID: <strong>{{.UGCID}}</strong></li>
<li>Batch: {{.Batch}}</li>
</ul>
<p>Please keep these identifiers for registration and billing.</p>`))

// NotificationService delivers admission notices through a background queue.
// Without a sender the notice is only logged.
type NotificationService struct {
	queue   noticeQueue
	sender  noticeSender
	metrics noticeMetrics
	logger  *zap.Logger
}

// NewNotificationService constructs the service. queue may be attached later
// with AttachQueue, since the queue's handler is the service itself.
func NewNotificationService(sender noticeSender, metrics noticeMetrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, metrics: metrics, logger: logger}
}

// AttachQueue sets the queue notices are dispatched on.
func (s *NotificationService) AttachQueue(queue noticeQueue) {
	s.queue = queue
}

// NotifyAdmission schedules an admission notice.
func (s *NotificationService) NotifyAdmission(ctx context.Context, notice AdmissionNotice) error {
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeAdmissionNotice, Payload: notice}
	if s.queue == nil {
		return s.Handle(ctx, job)
	}
	return s.queue.Enqueue(ctx, job)
}

// Handle is the queue handler delivering one notice.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(AdmissionNotice)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	logFields := []zap.Field{
		zap.Int64("application_id", notice.ApplicationID),
		zap.String("university_id", notice.UniversityID),
		zap.String("ugc_id", notice.UGCID),
	}
	if s.sender == nil || notice.Email == "" {
		s.logger.Info("admission notice (not mailed)", logFields...)
		s.record("logged")
		return nil
	}

	var body bytes.Buffer
	if err := admissionNoticeTemplate.Execute(&body, notice); err != nil {
		return fmt.Errorf("render admission notice: %w", err)
	}
	err := s.sender.Send(ctx, mailer.Message{
		To:      []string{notice.Email},
		Subject: fmt.Sprintf("Admission confirmed: %s", notice.UniversityID),
		HTML:    body.String(),
	})
	if err != nil {
		s.record("failed")
		return fmt.Errorf("send admission notice: %w", err)
	}
	s.record("sent")
	s.logger.Info("admission notice sent", logFields...)
	return nil
}

func (s *NotificationService) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordNotification(result)
	}
}
