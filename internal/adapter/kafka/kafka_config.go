package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// NewGroup builds a consumer group. An empty version keeps the 2.6 protocol.
func NewGroup(brokers []string, groupID, version string) (sarama.ConsumerGroup, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_6_0_0
	if version != "" {
		v, err := sarama.ParseKafkaVersion(version)
		if err != nil {
			return nil, fmt.Errorf("kafka version %q: %w", version, err)
		}
		cfg.Version = v
	}
	cfg.ClientID = groupID
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Net.DialTimeout = 5 * time.Second
	return sarama.NewConsumerGroup(brokers, groupID, cfg)
}
