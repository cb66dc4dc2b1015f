package notification

import "sglgb/internal/platform/config"

func configWith(brokers []string, topic string) config.Kafka {
	return config.Kafka{Brokers: brokers, Topic: topic, Partitions: 1, ReplicationFactor: 1}
}
