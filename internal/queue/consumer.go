package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// PaymentRecorder applies a payment status report to a purchase.
type PaymentRecorder interface {
    RecordPayment(ctx context.Context, ev PaymentStatusEvent) error
}

// ErrPermanent marks a message that will never succeed.  Such messages are
// rejected without requeue; anything else is requeued once.
var ErrPermanent = errors.New("permanent message failure")

// PaymentConsumer listens for payment.status events and records them.
type PaymentConsumer struct {
    URL      string
    Exchange string
    Queue    string
    Prefetch int
    Recorder PaymentRecorder
}

// Run connects to the broker, binds the payment queue to the exchange and
// consumes until ctx is cancelled.  Dial failures and dropped connections
// are retried with exponential backoff capped at 30 seconds.
func (c *PaymentConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.Printf("payment-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("payment-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *PaymentConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    prefetch := c.Prefetch
    if prefetch <= 0 {
        prefetch = 50
    }
    if err := ch.Qos(prefetch, 0, false); err != nil {
        log.Printf("payment-consumer: set QoS failed: %v", err)
    }
    if err := declareExchange(ch, c.Exchange); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }
    q, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    if err := ch.QueueBind(q.Name, RoutingPaymentStatus, c.Exchange, false, nil); err != nil {
        return fmt.Errorf("queue bind: %w", err)
    }

    msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        err := c.handle(ctx, d.Body)
        switch {
        case err == nil:
            _ = d.Ack(false)
        case errors.Is(err, ErrPermanent) || d.Redelivered:
            log.Printf("payment-consumer: dropping message: %v", err)
            _ = d.Nack(false, false)
        default:
            log.Printf("payment-consumer: handle message failed, requeueing: %v", err)
            _ = d.Nack(false, true)
        }
    }
    return errors.New("deliveries channel closed")
}

// handle decodes one delivery and hands it to the recorder.
func (c *PaymentConsumer) handle(ctx context.Context, body []byte) error {
    var ev PaymentStatusEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("%w: unmarshal: %v", ErrPermanent, err)
    }
    if ev.PurchaseID == 0 || ev.Status == "" {
        return fmt.Errorf("%w: purchase_id and status are required", ErrPermanent)
    }
    err := c.Recorder.RecordPayment(ctx, ev)
    if errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrNotFound) {
        return fmt.Errorf("%w: %v", ErrPermanent, err)
    }
    return err
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
