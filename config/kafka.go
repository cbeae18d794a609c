package config

type KafkaConfig struct {
	Brokers   []string
	StepTopic string
}

func GetKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:   getListEnv("KAFKA_BROKERS"),
		StepTopic: getEnv("KAFKA_STEP_TOPIC", "video-processing-steps"),
	}
}

func (c *KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}
