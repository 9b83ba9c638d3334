package api

import (
	"bracketflow/internal/execution"
	"bracketflow/internal/webhook"
	"bracketflow/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// runKafkaSource 消息和 webhook 使用同一种信号格式，解析失败的消息直接丢弃
func runKafkaSource(msgs <-chan kafka.Message, dec *webhook.Decoder, orch *execution.Orchestrator) {
	for m := range msgs {
		sig, err := dec.Decode(m.Value)
		if err != nil {
			logger.Warnf("kafka message %s/%d offset %d dropped: %v", m.Topic, m.Partition, m.Offset, err)
			continue
		}
		offset := m.Offset
		orch.Dispatch(sig, func(exec *execution.Execution, err error) {
			if err != nil {
				logger.Warnf("kafka signal %s at offset %d not executed: %v", sig, offset, err)
				return
			}
			logger.Infof("kafka signal %s at offset %d started execution %s", sig, offset, exec.ID)
		})
	}
}
