package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// StartBookingConsumer connects to RabbitMQ, declares the
// booking.confirmed and booking.cancelled queues (durable) and
// consumes both, appending each message to logs/booking.log in a
// single-line, human-friendly format. It runs a reconnect loop with
// exponential backoff and never returns under normal operation;
// malformed messages are rejected without requeue so a poison message
// cannot wedge the loop.
func StartBookingConsumer(url string) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn); err != nil {
            log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(2 * time.Second)
            continue
        }
    }
}

func consumeLoop(conn *amqp.Connection) error {
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("booking-consumer: set QoS failed: %v", err)
    }

    for _, name := range []string{BookingConfirmedQueue, BookingCancelledQueue} {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
    }

    confirmed, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("consume %s: %w", BookingConfirmedQueue, err)
    }
    cancelled, err := ch.Consume(BookingCancelledQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("consume %s: %w", BookingCancelledQueue, err)
    }

    for {
        select {
        case d, ok := <-confirmed:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            handleDelivery(d, handleConfirmed)
        case d, ok := <-cancelled:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            handleDelivery(d, handleCancelled)
        }
    }
}

func handleDelivery(d amqp.Delivery, handle func([]byte) error) {
    if err := handle(d.Body); err != nil {
        log.Printf("booking-consumer: handle message failed: %v", err)
        _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
        return
    }
    _ = d.Ack(false)
}

func handleConfirmed(body []byte) error {
    var ev BookingConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | reference=%s | user_id=%d | event_id=%d | event=\"%s\" | tickets=%d | total=%d cents\n",
        ev.ConfirmedAt, ev.BookingID, ev.Reference, ev.UserID, ev.EventID, ev.EventTitle, ev.TicketCount, ev.TotalAmountCents)
    return appendBookingLog(line)
}

func handleCancelled(body []byte) error {
    var ev BookingCancelledEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    line := fmt.Sprintf("[%s] Booking cancelled | booking_id=%d | reference=%s | user_id=%d | event_id=%d | refund_expected=%t\n",
        ev.CancelledAt, ev.BookingID, ev.Reference, ev.UserID, ev.EventID, ev.RefundExpected)
    return appendBookingLog(line)
}

func appendBookingLog(line string) error {
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join("logs", "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
