package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SpikeWatch/internal/service/ratelimit"
	pkghttp "SpikeWatch/pkg/http"
	applogger "SpikeWatch/pkg/logger"
)

const (
	apiBase        = "https://api.telegram.org"
	defaultQueue   = 256
	sendTimeout    = 10 * time.Second
	drainOnClose   = 5 * time.Second
	retryOnFailure = 1

	// Telegram tolerates short bursts but throttles sustained sends to
	// a chat at roughly one message per second.
	sendBurst     = 4.0
	sendPerSecond = 1.0
)

// Notifier delivers messages to a Telegram chat through a bounded async
// queue. Enqueueing never blocks the hot path: when the queue is full the
// oldest pending message is dropped to make room.
type Notifier struct {
	botToken string
	chatID   string
	client   *pkghttp.Client
	limiter  *ratelimit.Limiter
	log      *applogger.Logger

	queue chan string

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// New creates a Notifier and starts its delivery worker.
func New(botToken, chatID string, queueSize int, log *applogger.Logger) *Notifier {
	if queueSize <= 0 {
		queueSize = defaultQueue
	}
	n := &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   pkghttp.NewClient(pkghttp.WithTimeout(sendTimeout)),
		limiter:  ratelimit.New(sendBurst, sendPerSecond),
		log:      log,
		queue:    make(chan string, queueSize),
		done:     make(chan struct{}),
	}
	go n.worker()
	return n
}

// Notify enqueues a message. Never blocks; a full queue drops the oldest
// pending message so fresh alerts win.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return fmt.Errorf("telegram notifier closed")
	}
	for {
		select {
		case n.queue <- text:
			return nil
		default:
		}
		select {
		case stale := <-n.queue:
			if n.log != nil {
				n.log.Warn("telegram queue full, dropping oldest",
					applogger.Int("queue_cap", cap(n.queue)),
					applogger.String("dropped", truncate(stale, 64)))
			}
		default:
		}
	}
}

// Close stops accepting messages and drains the queue briefly.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	select {
	case <-n.done:
	case <-time.After(drainOnClose):
	}
	return nil
}

func (n *Notifier) worker() {
	defer close(n.done)
	for text := range n.queue {
		n.deliver(text)
	}
}

func (n *Notifier) deliver(text string) {
	if wait := n.limiter.Take(); wait > 0 {
		time.Sleep(wait)
	}
	var lastErr error
	for attempt := 0; attempt <= retryOnFailure; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := n.send(ctx, text)
		cancel()
		if err == nil {
			return
		}
		lastErr = err
		time.Sleep(time.Second)
	}
	if n.log != nil {
		n.log.Error("telegram send failed", applogger.Error(lastErr))
	}
}

func (n *Notifier) send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", apiBase, n.botToken)
	return n.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    url,
		Body: map[string]interface{}{
			"chat_id":    n.chatID,
			"text":       text,
			"parse_mode": "HTML",
		},
	}, nil)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
