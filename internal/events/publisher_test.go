package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSendEncodesChange(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var change models.Change
		if err := json.Unmarshal(val, &change); err != nil {
			return err
		}
		if change.Resource != models.ResourceQuotes || change.OrderID != "order-1" {
			return errors.New("unexpected change payload")
		}
		return nil
	})

	p := NewPublisher(producer, "", testLogger())
	require.NoError(t, p.Send(context.Background(), models.Change{Resource: models.ResourceQuotes, OrderID: "order-1"}))

	published, failed, _ := p.Stats()
	assert.Equal(t, int64(1), published)
	assert.Zero(t, failed)
	require.NoError(t, p.Close())
}

func TestSendRetriesThenSucceeds(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
	producer.ExpectSendMessageAndSucceed()

	p := NewPublisher(producer, "changes", testLogger())
	p.retryDelay = time.Millisecond

	require.NoError(t, p.Send(context.Background(), models.Change{Resource: models.ResourcePayments}))
	require.NoError(t, p.Close())
}

func TestSendGivesUp(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	for i := 0; i <= MaxRetries; i++ {
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	}

	p := NewPublisher(producer, "changes", testLogger())
	p.retryDelay = time.Millisecond

	err := p.Send(context.Background(), models.Change{Resource: models.ResourceItems})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	_, failed, _ := p.Stats()
	assert.Equal(t, int64(1), failed)
	require.NoError(t, p.Close())
}

func TestRunDrainsQueue(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	p := NewPublisher(producer, "changes", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Publish(models.Change{Resource: models.ResourceOrders})
	p.Publish(models.Change{Resource: models.ResourceTransactions})

	require.Eventually(t, func() bool {
		published, _, _ := p.Stats()
		return published == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, p.Close())
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	p := NewPublisher(producer, "changes", testLogger())

	for i := 0; i < queueSize+3; i++ {
		p.Publish(models.Change{Resource: models.ResourceOrders})
	}
	_, _, dropped := p.Stats()
	assert.Equal(t, int64(3), dropped)
}
