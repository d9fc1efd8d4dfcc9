// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"

	"seqbank-go/internal/config"
	"seqbank-go/pkg/log"
	"seqbank-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// Producer 封装会话提交事件的发布。全文索引边车自行消费该主题，
// 本服务只负责生产端。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// PublishSessionCommitted 发布一条会话已提交事件。
func (p *Producer) PublishSessionCommitted(ctx context.Context, task tasks.SessionCommittedTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.SessionKey),
		Value: payload,
	})
}

// Close 关闭底层的 Kafka writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}
