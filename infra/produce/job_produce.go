package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	JobDispatchQueue      = "job.dispatch"
	JobDispatchExchange   = "job.exchange"
	JobDispatchRoutingKey = "job.dispatch"
)

// JobDispatchMessage asks the consumer to submit a freshly created job to
// the model API. The record already exists in queued status; the consumer
// owns the retry policy.
type JobDispatchMessage struct {
	JobID     string `json:"job_id"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
}

// JobProduceService publishes dispatch requests for the consumer binary.
type JobProduceService struct {
	channel *amqp.Channel
}

func InitJobProduceService(channel *amqp.Channel) *JobProduceService {
	service := &JobProduceService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		JobDispatchExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Job exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		JobDispatchQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Job dispatch queue: " + err.Error())
	}

	err = channel.QueueBind(
		JobDispatchQueue,
		JobDispatchRoutingKey,
		JobDispatchExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Job dispatch queue: " + err.Error())
	}

	return service
}

// PublishDispatchJob enqueues a dispatch request for the given job.
func (s *JobProduceService) PublishDispatchJob(ctx context.Context, jobID, kind string) error {
	message := JobDispatchMessage{
		JobID:     jobID,
		Kind:      kind,
		Timestamp: time.Now().Unix(),
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(ctx,
		JobDispatchExchange,
		JobDispatchRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
