package config

import (
    "fmt"
    "time"

    "github.com/kelseyhightower/envconfig"
)

// Booking configures the seat inventory, the hold reaper and the broker.
type Booking struct {
    // Timezone is the zone show dates and start times are expressed in.
    Timezone string `envconfig:"BOOKING_TIMEZONE" default:"UTC"`

    ReaperEnabled   bool          `envconfig:"REAPER_ENABLED" default:"true"`
    ReaperInterval  time.Duration `envconfig:"REAPER_INTERVAL" default:"60s"`
    ReaperBatchSize int           `envconfig:"REAPER_BATCH_SIZE" default:"500"`

    // RabbitURL empty disables both event publishing and the payment consumer.
    RabbitURL       string        `envconfig:"RABBITMQ_URL"`
    Exchange        string        `envconfig:"RABBITMQ_EXCHANGE" default:"cinema.booking"`
    PaymentQueue    string        `envconfig:"RABBITMQ_PAYMENT_QUEUE" default:"booking.payment-status"`
    PublishTimeout  time.Duration `envconfig:"RABBITMQ_PUBLISH_TIMEOUT" default:"5s"`
    ConsumerEnabled bool          `envconfig:"PAYMENT_CONSUMER_ENABLED" default:"true"`
    Prefetch        int           `envconfig:"PAYMENT_CONSUMER_PREFETCH" default:"10"`
}

// LoadBooking reads the booking settings and resolves the time zone.
func LoadBooking() (Booking, *time.Location, error) {
    var b Booking
    if err := envconfig.Process("", &b); err != nil {
        return Booking{}, nil, err
    }
    if b.ReaperInterval <= 0 {
        return Booking{}, nil, fmt.Errorf("REAPER_INTERVAL must be positive, got %s", b.ReaperInterval)
    }
    if b.ReaperBatchSize < 1 {
        b.ReaperBatchSize = 1
    }
    loc, err := time.LoadLocation(b.Timezone)
    if err != nil {
        return Booking{}, nil, fmt.Errorf("BOOKING_TIMEZONE: %w", err)
    }
    return b, loc, nil
}
