package queue

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	acks     int
	nacks    int
	requeued bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error { f.acks++; return nil }
func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacks++
	f.requeued = requeue
	return nil
}
func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error { return nil }

type fakePublisher struct {
	published []amqp.Publishing
	err       error
}

func (f *fakePublisher) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func newTestQueue(pub *fakePublisher) *Queue {
	return &Queue{pub: pub, log: zerolog.Nop()}
}

func runDelivery(t *testing.T, campaignID, retries int) (amqp.Delivery, *fakeAcknowledger) {
	t.Helper()
	body, err := json.Marshal(RunJob{CampaignID: campaignID})
	require.NoError(t, err)
	ack := &fakeAcknowledger{}
	return amqp.Delivery{
		Acknowledger: ack,
		Body:         body,
		Headers:      amqp.Table{retryCountHeader: int32(retries)},
	}, ack
}

func publishedRetries(t *testing.T, msg amqp.Publishing) int {
	t.Helper()
	n, ok := msg.Headers[retryCountHeader].(int32)
	require.True(t, ok, "retry header missing")
	return int(n)
}

func TestPublishRunCarriesZeroRetryCount(t *testing.T) {
	pub := &fakePublisher{}
	q := newTestQueue(pub)

	require.NoError(t, q.PublishRun(7))
	require.Len(t, pub.published, 1)

	msg := pub.published[0]
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.Equal(t, 0, publishedRetries(t, msg))

	var job RunJob
	require.NoError(t, json.Unmarshal(msg.Body, &job))
	assert.Equal(t, 7, job.CampaignID)
}

func TestSuccessfulJobAckedWithoutRepublish(t *testing.T) {
	pub := &fakePublisher{}
	q := newTestQueue(pub)
	d, ack := runDelivery(t, 1, 0)

	q.handleRun(d, func(campaignID int) error { return nil })

	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
	assert.Empty(t, pub.published)
}

func TestFailingJobRepublishedWithIncrementedRetryCount(t *testing.T) {
	pub := &fakePublisher{}
	q := newTestQueue(pub)
	d, ack := runDelivery(t, 1, 0)

	q.handleRun(d, func(campaignID int) error { return errors.New("campaign not runnable") })

	assert.Equal(t, 1, ack.acks, "original must be acked, not left in-flight")
	assert.Zero(t, ack.nacks, "a plain requeue would loop with the count stuck at zero")
	require.Len(t, pub.published, 1)
	assert.Equal(t, 1, publishedRetries(t, pub.published[0]))
}

func TestFailingJobDroppedOnceBudgetSpent(t *testing.T) {
	pub := &fakePublisher{}
	q := newTestQueue(pub)

	// Walk a persistently failing job through its whole budget.
	fail := func(campaignID int) error { return errors.New("still failing") }
	for retries := 0; retries < maxRequeues; retries++ {
		d, ack := runDelivery(t, 1, retries)
		q.handleRun(d, fail)
		assert.Equal(t, 1, ack.acks)
	}
	require.Len(t, pub.published, maxRequeues)
	assert.Equal(t, maxRequeues, publishedRetries(t, pub.published[maxRequeues-1]))

	d, ack := runDelivery(t, 1, maxRequeues)
	q.handleRun(d, fail)

	assert.Equal(t, 1, ack.acks, "spent job is acked away")
	assert.Len(t, pub.published, maxRequeues, "no further re-publish")
}

func TestInvalidJobDroppedWithoutHandler(t *testing.T) {
	pub := &fakePublisher{}
	q := newTestQueue(pub)
	ack := &fakeAcknowledger{}
	d := amqp.Delivery{Acknowledger: ack, Body: []byte("not json")}

	called := false
	q.handleRun(d, func(campaignID int) error { called = true; return nil })

	assert.False(t, called)
	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, pub.published)
}

func TestRepublishFailureFallsBackToRedelivery(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	q := newTestQueue(pub)
	d, ack := runDelivery(t, 1, 0)

	q.handleRun(d, func(campaignID int) error { return errors.New("boom") })

	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeued, "job must not be lost when the re-publish fails")
}

func TestRequeueCountHeaderTypes(t *testing.T) {
	assert.Equal(t, 0, requeueCount(nil))
	assert.Equal(t, 2, requeueCount(amqp.Table{retryCountHeader: 2}))
	assert.Equal(t, 2, requeueCount(amqp.Table{retryCountHeader: int32(2)}))
	assert.Equal(t, 2, requeueCount(amqp.Table{retryCountHeader: int64(2)}))
	assert.Equal(t, 0, requeueCount(amqp.Table{retryCountHeader: "2"}))
}
