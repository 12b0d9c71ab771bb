package bootstrap

import (
	"github.com/Goden-Gun/grpcbind/pkg/config"
	"github.com/Goden-Gun/grpcbind/pkg/kafka"
)

// InitKafka 初始化共享 Kafka producer
func InitKafka(cfg config.KafkaConfig) (*kafka.Manager, error) {
	cfg.ApplyDefaults()
	return kafka.NewManager(kafka.Config{
		Brokers:       cfg.Brokers,
		Topic:         cfg.Topic,
		ClientID:      cfg.ClientID,
		Username:      cfg.Username,
		Password:      cfg.Password,
		SASLMechanism: cfg.SASLMechanism,
		TLSEnabled:    cfg.TLSEnabled,
		RequiredAcks:  cfg.RequiredAcks,
		MaxAttempts:   cfg.MaxAttempts,
	})
}

// InitErrorReporter 构建错误事件上报器，Kafka 未启用时返回 nil
func InitErrorReporter(cfg config.Config) (*kafka.Reporter, *kafka.Manager, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil, nil
	}
	m, err := InitKafka(cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	return kafka.NewReporter(m, kafka.ReporterOptions{
		Topic:   cfg.Kafka.Topic,
		Service: cfg.App.Name,
		NodeID:  cfg.App.NodeID,
	}), m, nil
}
