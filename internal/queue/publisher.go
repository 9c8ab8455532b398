package queue

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers domain events to RabbitMQ. Each publish dials a
// fresh connection; publishing is rare enough (once per lifecycle
// transition) that connection reuse is not worth the reconnect
// machinery. Errors are logged and returned so callers can ignore
// them without interrupting the request flow.
type Publisher struct {
    URL string
}

// NewPublisher returns a Publisher for the given broker URL.
func NewPublisher(url string) *Publisher { return &Publisher{URL: url} }

// publish declares the durable queue and sends one persistent JSON
// message to it via the default exchange.
func (p *Publisher) publish(ctx context.Context, queueName string, payload interface{}) error {
    conn, err := amqp.Dial(p.URL)
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

    // Idempotent declare; durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(payload)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
        log.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
        return err
    }
    return nil
}

// BookingConfirmed publishes to the booking.confirmed queue.
func (p *Publisher) BookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
    return p.publish(ctx, BookingConfirmedQueue, ev)
}

// BookingCancelled publishes to the booking.cancelled queue.
func (p *Publisher) BookingCancelled(ctx context.Context, ev BookingCancelledEvent) error {
    return p.publish(ctx, BookingCancelledQueue, ev)
}

// TicketCheckedIn publishes to the ticket.checkedin queue.
func (p *Publisher) TicketCheckedIn(ctx context.Context, ev TicketCheckedInEvent) error {
    return p.publish(ctx, TicketCheckedInQueue, ev)
}

// RefundRequested publishes to the payment.refund.requested queue.
func (p *Publisher) RefundRequested(ctx context.Context, ev RefundRequestedEvent) error {
    return p.publish(ctx, RefundRequestedQueue, ev)
}
