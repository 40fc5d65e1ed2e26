package kafka

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/illegalcall/fittrack/internal/config"
)

const (
	maxRetries = 10
	retryDelay = 3 * time.Second
)

func waitForKafka(brokers []string) error {
	for i := 0; i < maxRetries; i++ {
		config := sarama.NewConfig()
		config.Net.DialTimeout = 1 * time.Second
		client, err := sarama.NewClient(brokers, config)
		if err == nil {
			client.Close()
			return nil
		}
		slog.Info("Waiting for Kafka to be ready...", "attempt", i+1)
		time.Sleep(retryDelay)
	}
	return fmt.Errorf("kafka not available after %d attempts", maxRetries)
}

// ProducerConfig is the sarama configuration used for the event producer.
func ProducerConfig(cfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()
	c.Producer.Return.Successes = true
	c.Producer.RequiredAcks = sarama.WaitForLocal
	c.Producer.Retry.Max = cfg.RetryMax
	c.Producer.Retry.Backoff = cfg.RetryBackoff
	return c
}

// ConsumerConfig is the sarama configuration used by audit workers.
func ConsumerConfig() *sarama.Config {
	c := sarama.NewConfig()
	c.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	c.Consumer.Offsets.Initial = sarama.OffsetOldest
	c.Consumer.Return.Errors = true
	return c
}

func NewProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	brokers := []string{cfg.Broker}
	if err := waitForKafka(brokers); err != nil {
		return nil, err
	}
	return sarama.NewSyncProducer(brokers, ProducerConfig(cfg))
}

func NewConsumer(cfg config.KafkaConfig) (sarama.ConsumerGroup, error) {
	brokers := []string{cfg.Broker}
	if err := waitForKafka(brokers); err != nil {
		return nil, err
	}
	return sarama.NewConsumerGroup(brokers, cfg.Group, ConsumerConfig())
}
