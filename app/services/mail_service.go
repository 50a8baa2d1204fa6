package services

import (
	"context"

	"github.com/shashiranjanraj/bidmarket/app/jobs"
	"github.com/shashiranjanraj/bidmarket/pkg/queue"
)

// JobDispatcher is satisfied by *queue.Manager.
type JobDispatcher interface {
	Dispatch(ctx context.Context, job queue.Job) error
}

// MailService turns outgoing mail into SendMail jobs. Requests only enqueue;
// rendering and delivery happen on a queue worker.
type MailService struct {
	jobs JobDispatcher
}

func NewMailService(jobs JobDispatcher) *MailService {
	return &MailService{jobs: jobs}
}

// Queue enqueues one email.
func (s *MailService) Queue(ctx context.Context, to, subject, message string) error {
	return s.jobs.Dispatch(ctx, &jobs.SendMail{To: to, Subject: subject, Message: message})
}
