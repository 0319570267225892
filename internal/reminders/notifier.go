package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/andreagonzahe/lunaria-app/internal/logger"
)

// ErrNoSubscriptions is returned when a push is attempted with no registered device.
var ErrNoSubscriptions = errors.New("no push subscriptions registered")

// Notification is the payload of one reminder.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Tag   string            `json:"tag,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes reminders to the log. It is used when push delivery is
// not configured.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(l *logger.Logger) *LogNotifier {
	return &LogNotifier{log: l}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.log.Info("reminder due", "title", note.Title, "tag", note.Tag)
	return nil
}

// VAPIDConfig holds the keys used to sign push messages.
type VAPIDConfig struct {
	Subject    string `yaml:"subject"`
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
	TTL        int    `yaml:"ttl"`
}

// Configured reports whether every key is set.
func (c VAPIDConfig) Configured() bool {
	return c.Subject != "" && c.PublicKey != "" && c.PrivateKey != ""
}

// WebPushNotifier sends reminders to every registered browser subscription.
// Subscriptions the push service reports as gone are dropped.
type WebPushNotifier struct {
	options webpush.Options
	log     *logger.Logger

	mu   sync.Mutex
	subs map[string]webpush.Subscription // by endpoint
}

// NewWebPushNotifier creates a WebPushNotifier. client may be nil.
func NewWebPushNotifier(cfg VAPIDConfig, client *http.Client, l *logger.Logger) *WebPushNotifier {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}
	opts := webpush.Options{
		Subscriber:      cfg.Subject,
		VAPIDPublicKey:  cfg.PublicKey,
		VAPIDPrivateKey: cfg.PrivateKey,
		TTL:             ttl,
		Urgency:         webpush.UrgencyHigh,
	}
	if client != nil {
		opts.HTTPClient = client
	}
	return &WebPushNotifier{
		options: opts,
		log:     l,
		subs:    make(map[string]webpush.Subscription),
	}
}

// PublicKey returns the VAPID public key clients subscribe with.
func (n *WebPushNotifier) PublicKey() string {
	return n.options.VAPIDPublicKey
}

// Subscribe registers a browser subscription, replacing any with the same endpoint.
func (n *WebPushNotifier) Subscribe(sub webpush.Subscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return errors.New("subscription needs an endpoint and both keys")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs[sub.Endpoint] = sub
	return nil
}

// Unsubscribe removes the subscription for endpoint.
func (n *WebPushNotifier) Unsubscribe(endpoint string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, endpoint)
}

// Subscriptions returns the number of registered subscriptions.
func (n *WebPushNotifier) Subscriptions() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Notify implements Notifier. It succeeds if at least one device accepted
// the message.
func (n *WebPushNotifier) Notify(ctx context.Context, note Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	n.mu.Lock()
	subs := make([]webpush.Subscription, 0, len(n.subs))
	for _, s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.Unlock()

	if len(subs) == 0 {
		return ErrNoSubscriptions
	}

	var sent int
	var errs []error
	for i := range subs {
		if err := n.send(ctx, payload, &subs[i]); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}

	n.log.Debug("push summary", "subscriptions", len(subs), "sent", sent)
	if sent == 0 {
		return fmt.Errorf("no push delivered: %w", errors.Join(errs...))
	}
	return nil
}

func (n *WebPushNotifier) send(ctx context.Context, payload []byte, sub *webpush.Subscription) error {
	opts := n.options
	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &opts)
	if err != nil {
		return fmt.Errorf("sending push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		n.Unsubscribe(sub.Endpoint)
		n.log.Info("removed expired push subscription")
		return fmt.Errorf("subscription expired (%d)", resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden:
		// Signed with different VAPID keys; the client re-subscribes.
		n.Unsubscribe(sub.Endpoint)
		n.log.Warn("removed push subscription with mismatched keys")
		return fmt.Errorf("subscription rejected (%d)", resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push service returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
