package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sunny18-max/crowdfunding-sub001/internal/logger"
	"github.com/sunny18-max/crowdfunding-sub001/internal/metrics"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues notification emails on redis and drains the queue in a
// background worker. Delivery is best effort; the ledger never depends on
// it.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

// NewWithClient injects a redis client, used by tests.
func NewWithClient(client *redis.Client, fromEmail, fromName string) *Service {
	return &Service{
		redis:    client,
		from:     fromEmail,
		fromName: fromName,
	}
}

func (s *Service) enqueue(ctx context.Context, job Job) error {
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("failed to queue %s notification to %s: %v", job.Type, job.To, err)
		metrics.RecordNotification(job.Type, "queue_error")
		return err
	}

	metrics.RecordNotification(job.Type, "queued")
	logger.Infof("notification queued: %s to %s", job.Type, job.To)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Errorf("failed to send %s notification to %s: %v", job.Type, job.To, err)

		if job.Tries < maxTries {
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			metrics.RecordNotification(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordNotification(job.Type, "sent")
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("notification moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func formatCents(amountCents int64) string {
	return fmt.Sprintf("%d.%02d", amountCents/100, amountCents%100)
}

func (s *Service) SendPledgeReceipt(ctx context.Context, email, name string, amountCents int64, campaignID int) error {
	body := fmt.Sprintf(`Hi %s,

Thanks for backing campaign #%d with %s!

The amount has been debited from your wallet. If the campaign does not
reach its goal, it will be refunded in full.

- The Crowdfund Team`, name, campaignID, formatCents(amountCents))

	return s.enqueue(ctx, Job{
		To:      email,
		Name:    name,
		Type:    "pledge_receipt",
		Subject: "Pledge received",
		Body:    body,
	})
}

func (s *Service) SendRefundNotice(ctx context.Context, email, name, campaignTitle string, amountCents int64) error {
	body := fmt.Sprintf(`Hi %s,

The campaign "%s" did not reach its goal, so your pledge of %s has been
refunded to your wallet.

- The Crowdfund Team`, name, campaignTitle, formatCents(amountCents))

	return s.enqueue(ctx, Job{
		To:      email,
		Name:    name,
		Type:    "refund_notice",
		Subject: "Your pledge has been refunded",
		Body:    body,
	})
}

func (s *Service) SendPayoutNotice(ctx context.Context, email, name string, amountCents int64) error {
	body := fmt.Sprintf(`Hi %s,

Congratulations! Your campaign reached its goal and %s has been credited
to your wallet.

- The Crowdfund Team`, name, formatCents(amountCents))

	return s.enqueue(ctx, Job{
		To:      email,
		Name:    name,
		Type:    "payout_notice",
		Subject: "Your campaign funds have been released",
		Body:    body,
	})
}
