package submit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nsqio/go-nsq"

	"route-tracker/internal/monitoring"
)

// nsqLogger forwards go-nsq's internal log lines.
type nsqLogger struct{}

func (nsqLogger) Output(_ int, s string) error {
	monitoring.Warnf("nsq: %s", s)
	return nil
}

type publisher interface {
	Publish(topic string, body []byte) error
	Stop()
}

// NSQSubmitter publishes payloads to an NSQ topic for an asynchronous
// consumer. The bearer token is not forwarded.
type NSQSubmitter struct {
	producer publisher
	topic    string
}

func NewNSQSubmitter(addr, topic string) (*NSQSubmitter, error) {
	producer, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	producer.SetLogger(nsqLogger{}, nsq.LogLevelWarning)
	if err := producer.Ping(); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("nsqd %s: %w", addr, err)
	}
	return &NSQSubmitter{producer: producer, topic: topic}, nil
}

func (n *NSQSubmitter) Submit(ctx context.Context, _ string, p Payload) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, &TransportError{Kind: KindNetwork, Err: err}
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode payload: %w", err)
	}
	if err := n.producer.Publish(n.topic, body); err != nil {
		return Receipt{}, &TransportError{Kind: KindPublish, Err: err}
	}
	return Receipt{Message: "queued on " + n.topic}, nil
}

func (n *NSQSubmitter) Close() error {
	n.producer.Stop()
	return nil
}
