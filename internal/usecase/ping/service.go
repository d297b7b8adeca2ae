package ping

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"weblogger/internal/domain/entry"
	"weblogger/internal/domain/repository"
)

const maxAttempts = 3

// Service queues update notifications when entries are published and drains
// the queue against the configured aggregator endpoints.
type Service struct {
	queue   repository.PingQueue
	targets []string
	client  *http.Client
	logger  *slog.Logger
}

// NewService builds a ping service. targets is the list of aggregator ping
// URLs; an empty list makes queuing a no-op.
func NewService(queue repository.PingQueue, targets []string, client *http.Client, logger *slog.Logger) *Service {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{queue: queue, targets: targets, client: client, logger: logger}
}

// QueueApplicableAutoPings enqueues one pending ping per configured target
// for a freshly published entry.
func (s *Service) QueueApplicableAutoPings(ctx context.Context, e *entry.Entry) error {
	for _, target := range s.targets {
		p := &repository.Ping{
			WeblogID:  e.WeblogID,
			EntryID:   e.ID,
			TargetURL: target,
		}
		if err := s.queue.Enqueue(ctx, p); err != nil {
			return fmt.Errorf("queue ping to %s: %w", target, err)
		}
	}
	return nil
}

// ProcessPending drains up to limit queued pings. A delivered ping leaves
// the queue; a failed one is requeued with its attempt count bumped until
// it exhausts its attempts and is dropped. Returns how many pings were
// delivered.
func (s *Service) ProcessPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.queue.Pending(ctx, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, p := range pending {
		if err := s.send(ctx, p); err != nil {
			s.logger.Warn("ping delivery failed",
				"target", p.TargetURL, "attempts", p.Attempts+1, "error", err)
			if err := s.requeue(ctx, p); err != nil {
				return sent, err
			}
			continue
		}
		if err := s.queue.Remove(ctx, p.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (s *Service) send(ctx context.Context, p repository.Ping) error {
	form := url.Values{}
	form.Set("weblog", p.WeblogID.String())
	form.Set("entry", p.EntryID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TargetURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("target responded %s", resp.Status)
	}
	return nil
}

func (s *Service) requeue(ctx context.Context, p repository.Ping) error {
	if err := s.queue.Remove(ctx, p.ID); err != nil {
		return err
	}
	if p.Attempts+1 >= maxAttempts {
		s.logger.Warn("dropping ping after repeated failures", "target", p.TargetURL)
		return nil
	}
	return s.queue.Enqueue(ctx, &repository.Ping{
		WeblogID:  p.WeblogID,
		EntryID:   p.EntryID,
		TargetURL: p.TargetURL,
		Attempts:  p.Attempts + 1,
	})
}
