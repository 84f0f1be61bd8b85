// Package queue moves campaign run jobs between the API and the worker over
// RabbitMQ, so an HTTP call never blocks on a multi-hour delivery run.
package queue

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

const RunQueue = "campaign_runs"

// retryCountHeader carries the attempt count with the job. A plain
// Nack(requeue) redelivers the message byte-for-byte, so the bound has to
// travel in a header we increment ourselves on each re-publish.
const retryCountHeader = "x-retry-count"

// maxRequeues bounds how often a failing job is re-published before it is
// dropped; the engine's own retry and target-level error capture make
// further attempts pointless.
const maxRequeues = 3

// RunJob asks the worker to execute one campaign run.
type RunJob struct {
	CampaignID int `json:"campaign_id"`
}

// publisher is the slice of amqp.Channel the queue writes through.
type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Queue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	pub  publisher
	log  zerolog.Logger
}

// Dial connects and declares the durable run queue.
func Dial(url string, log zerolog.Logger) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		RunQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Queue{conn: conn, ch: ch, pub: ch, log: log}, nil
}

func (q *Queue) Close() {
	q.ch.Close()
	q.conn.Close()
}

// PublishRun enqueues a fresh run job for the worker.
func (q *Queue) PublishRun(campaignID int) error {
	return q.publishJob(campaignID, 0)
}

func (q *Queue) publishJob(campaignID, retries int) error {
	body, err := json.Marshal(RunJob{CampaignID: campaignID})
	if err != nil {
		return err
	}
	return q.pub.Publish("", RunQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryCountHeader: int32(retries)},
		Body:         body,
	})
}

// ConsumeRuns delivers jobs to handler with manual acks. A failing job is
// acked and re-published with an incremented retry header up to maxRequeues
// times, then dropped.
func (q *Queue) ConsumeRuns(handler func(campaignID int) error) error {
	msgs, err := q.ch.Consume(
		RunQueue,
		"",
		false, // autoAck off for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for d := range msgs {
		q.handleRun(d, handler)
	}
	return nil
}

func (q *Queue) handleRun(d amqp.Delivery, handler func(campaignID int) error) {
	var job RunJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		q.log.Warn().Err(err).Msg("invalid run job, dropping")
		d.Ack(false)
		return
	}

	if err := handler(job.CampaignID); err != nil {
		retries := requeueCount(d.Headers)
		if retries >= maxRequeues {
			q.log.Error().Int("campaign_id", job.CampaignID).Err(err).
				Int("attempts", retries+1).Msg("run job permanently failed")
			d.Ack(false)
			return
		}

		q.log.Warn().Int("campaign_id", job.CampaignID).Err(err).
			Int("attempt", retries+1).Msg("run job failed, requeueing")
		if pubErr := q.publishJob(job.CampaignID, retries+1); pubErr != nil {
			// Can't re-publish; redeliver the original so the job is not
			// lost, even though that forfeits the incremented count.
			q.log.Error().Int("campaign_id", job.CampaignID).Err(pubErr).
				Msg("failed to re-publish run job, redelivering")
			d.Nack(false, true)
			return
		}
	}
	d.Ack(false)
}

func requeueCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers[retryCountHeader].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
