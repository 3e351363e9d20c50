package queue

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends domain events to a durable topic exchange.  A connection
// is opened per publish; event volume is one message per ticket or
// cancellation, and the service never holds a broker connection while the
// broker is down.  Errors are logged and returned so callers can ignore them
// without interrupting the request flow.
type Publisher struct {
    url      string
    exchange string
    timeout  time.Duration
}

// NewPublisher returns a Publisher for the given broker URL and exchange.
func NewPublisher(url, exchange string, timeout time.Duration) *Publisher {
    if timeout <= 0 {
        timeout = 5 * time.Second
    }
    return &Publisher{url: url, exchange: exchange, timeout: timeout}
}

// Publish marshals payload as JSON and publishes it with the routing key.
// Messages are marked persistent.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
    msg, err := encode(payload)
    if err != nil {
        log.Printf("rabbitmq: marshal %s failed: %v", routingKey, err)
        return err
    }

    ctx, cancel := context.WithTimeout(ctx, p.timeout)
    defer cancel()

    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if err := declareExchange(ch, p.exchange); err != nil {
        log.Printf("rabbitmq: exchange declare failed: %v", err)
        return err
    }

    if err := ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
        log.Printf("rabbitmq: publish %s failed: %v", routingKey, err)
        return err
    }
    return nil
}

func encode(payload any) (amqp.Publishing, error) {
    body, err := json.Marshal(payload)
    if err != nil {
        return amqp.Publishing{}, err
    }
    return amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }, nil
}

func declareExchange(ch *amqp.Channel, name string) error {
    return ch.ExchangeDeclare(
        name,
        "topic",
        true,  // durable
        false, // autoDelete
        false, // internal
        false, // noWait
        nil,
    )
}
