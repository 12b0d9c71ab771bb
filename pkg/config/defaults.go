package config

// DefaultBlocklistPrefix 已吊销 Token JTI 的 Redis key 前缀
const DefaultBlocklistPrefix = "grpcbind:token:block:"

// ApplyDefaults 依次应用各子配置的默认值
func (c *Config) ApplyDefaults() {
	if c.App.Env == "" {
		c.App.Env = GetEnv()
	}
	c.Log.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Client.ApplyDefaults()
	c.Tracing.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Token.ApplyDefaults()
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.App.Name
	}
}

// ==================== LogConfig 默认值 ====================

// ApplyDefaults 应用日志配置默认值
func (l *LogConfig) ApplyDefaults() {
	if l.Format == "" {
		l.Format = "json"
	}
	if l.Level == "" {
		l.Level = "info"
	}
	if l.File.Dir == "" {
		l.File.Dir = "./logs"
	}
	if l.File.MaxAgeDays <= 0 {
		l.File.MaxAgeDays = 7
	}
	if l.File.RotationDays <= 0 {
		l.File.RotationDays = 1
	}
}

// ==================== ServerConfig 默认值 ====================

// ApplyDefaults 应用服务端配置默认值，端口 0 表示由系统分配
func (s *ServerConfig) ApplyDefaults() {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.MaxRecvMsgBytes <= 0 {
		s.MaxRecvMsgBytes = 4 << 20
	}
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = 10
	}
}

// ==================== ClientConfig 默认值 ====================

// ApplyDefaults 应用客户端配置默认值
func (c *ClientConfig) ApplyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5
	}
	c.Queue.ApplyDefaults()
}

// ==================== TracingConfig 默认值 ====================

// ApplyDefaults 应用 Tracing 配置默认值
func (t *TracingConfig) ApplyDefaults() {
	if t.Exporter == "" {
		t.Exporter = "stdout"
	}
	if t.SampleRatio <= 0 {
		t.SampleRatio = 1.0
	}
}

// ==================== KafkaConfig 默认值 ====================

// ApplyDefaults 应用 Kafka 配置默认值
func (k *KafkaConfig) ApplyDefaults() {
	if k.Topic == "" {
		k.Topic = "grpcbind.errors"
	}
	if k.RequiredAcks == "" {
		k.RequiredAcks = "all"
	}
	if k.MaxAttempts <= 0 {
		k.MaxAttempts = 3
	}
}

// ==================== TokenConfig 默认值 ====================

// ApplyDefaults 应用 Token 配置默认值
func (t *TokenConfig) ApplyDefaults() {
	if t.TTL <= 0 {
		t.TTL = 30 * 60
	}
	if t.ClockSkew < 0 {
		t.ClockSkew = 0
	}
	if t.BlocklistPrefix == "" {
		t.BlocklistPrefix = DefaultBlocklistPrefix
	}
}
