package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"rail-booking/internal/rail"
)

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("rail-booking"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

type TicketMessage struct {
	JourneyID int64 `json:"journey_id"`
	Cargo     int   `json:"cargo"`
	Seat      int   `json:"seat"`
}

type OrderCreatedMessage struct {
	OrderID   int64           `json:"order_id"`
	UserID    int64           `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
	Tickets   []TicketMessage `json:"tickets"`
}

func NewOrderCreatedMessage(o rail.Order) OrderCreatedMessage {
	msg := OrderCreatedMessage{
		OrderID:   o.ID,
		UserID:    o.UserID,
		CreatedAt: o.CreatedAt,
		Tickets:   make([]TicketMessage, 0, len(o.Tickets)),
	}
	for _, t := range o.Tickets {
		msg.Tickets = append(msg.Tickets, TicketMessage{JourneyID: t.JourneyID, Cargo: t.Cargo, Seat: t.Seat})
	}
	return msg
}

// OrderCreatedSubject is <prefix>.orders.created.
func OrderCreatedSubject(prefix string) string {
	return fmt.Sprintf("%s.orders.created", subjectToken(prefix))
}

// PublishOrderCreated satisfies booking.Events.
func (p *NATSPublisher) PublishOrderCreated(o rail.Order) error {
	subject := OrderCreatedSubject(p.prefix)
	b, err := json.Marshal(NewOrderCreatedMessage(o))
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s order=%d", subject, o.ID)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
