package kafka

import (
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type Producer interface {
	Publish(topic string, message []byte) error
	Close() error
}

type SaramaProducer struct {
	producer sarama.SyncProducer
	log      *zap.SugaredLogger
}

func NewSaramaProducer(brokers []string, log *zap.SugaredLogger) (*SaramaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	prod, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &SaramaProducer{producer: prod, log: log}, nil
}

func (p *SaramaProducer) Publish(topic string, message []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(message),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Errorw("failed to send message", "topic", topic, "error", err)
		return err
	}
	p.log.Debugw("message stored", "topic", topic, "partition", partition, "offset", offset)
	return nil
}

func (p *SaramaProducer) Close() error {
	return p.producer.Close()
}
