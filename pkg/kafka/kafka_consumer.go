package kafka

import (
	"bracketflow/pkg/logger"
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerService 定义了消费 Kafka 消息的通用接口
type ConsumerService interface {
	// Consume 启动一个协程消费指定主题，将消息发送到返回的通道，ctx 取消后通道关闭
	Consume(ctx context.Context, topic string, groupID string) (<-chan kafka.Message, error)
	Close()
}

type kafkaConsumer struct {
	brokerURL string
}

func NewKafkaConsumer(brokerURL string) ConsumerService {
	return &kafkaConsumer{
		brokerURL: brokerURL,
	}
}

func (c *kafkaConsumer) Consume(ctx context.Context, topic string, groupID string) (<-chan kafka.Message, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{c.brokerURL},
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		// 交易信号有时效，只消费启动后的新消息
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
		MaxAttempts:    3,
	})
	// 信号量很小，不丢弃，缓冲满时阻塞读取
	outputCh := make(chan kafka.Message, 64)

	go func() {
		defer close(outputCh)
		defer r.Close()
		for {
			m, err := r.FetchMessage(ctx)
			if err != nil {
				// 如果是 Context 被取消（服务关闭），正常退出
				if ctx.Err() != nil {
					break
				}
				logger.Errorf("kafka read error on topic %s: %v", topic, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			select {
			case outputCh <- m:
			case <-ctx.Done():
				return
			}
			if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
				logger.Warnf("kafka commit offset %d on topic %s: %v", m.Offset, topic, err)
			}
		}
		logger.Infof("kafka consumer for topic %s finished", topic)
	}()

	return outputCh, nil
}

func (c *kafkaConsumer) Close() {
	logger.Info("kafka consumer service closing")
}
