package config

import "github.com/Goden-Gun/grpcbind/pkg/queue"

// Config grpcbind 进程的完整配置
type Config struct {
	App     AppConfig     `yaml:"app" mapstructure:"app"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Client  ClientConfig  `yaml:"client" mapstructure:"client"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka" mapstructure:"kafka"`
	Token   TokenConfig   `yaml:"token" mapstructure:"token"`
}

// ==================== 基础配置 ====================

// AppConfig 应用基础配置
type AppConfig struct {
	Env    string `yaml:"env" mapstructure:"env"`
	Name   string `yaml:"name" mapstructure:"name"`
	NodeID string `yaml:"node_id" mapstructure:"node_id"`
}

// LogConfig 日志配置
type LogConfig struct {
	Format       string        `yaml:"format" mapstructure:"format"`
	Level        string        `yaml:"level" mapstructure:"level"`
	ReportCaller bool          `yaml:"report_caller" mapstructure:"report_caller"`
	File         LogFileConfig `yaml:"file" mapstructure:"file"`
}

// LogFileConfig 日志文件配置，Enabled 为 false 时只输出到 stdout
type LogFileConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir          string `yaml:"dir" mapstructure:"dir"`
	Filename     string `yaml:"filename" mapstructure:"filename"`
	MaxAgeDays   int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	RotationDays int    `yaml:"rotation_days" mapstructure:"rotation_days"`
}

// ==================== gRPC 配置 ====================

// ServerConfig gRPC 服务端配置
type ServerConfig struct {
	Host                 string   `yaml:"host" mapstructure:"host"`
	Port                 uint16   `yaml:"port" mapstructure:"port"`
	Insecure             bool     `yaml:"insecure" mapstructure:"insecure"`
	TLSCertFile          string   `yaml:"tls_cert_file" mapstructure:"tls_cert_file"`
	TLSKeyFile           string   `yaml:"tls_key_file" mapstructure:"tls_key_file"`
	MaxConcurrentStreams uint32   `yaml:"max_concurrent_streams" mapstructure:"max_concurrent_streams"`
	MaxRecvMsgBytes      int      `yaml:"max_recv_msg_bytes" mapstructure:"max_recv_msg_bytes"`
	ShutdownTimeout      Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	// RequireToken 开启后所有 RPC 都要求携带 Token
	RequireToken bool `yaml:"require_token" mapstructure:"require_token"`
}

// ClientConfig gRPC 客户端配置
type ClientConfig struct {
	Target      string            `yaml:"target" mapstructure:"target"`
	Insecure    bool              `yaml:"insecure" mapstructure:"insecure"`
	Headers     map[string]string `yaml:"headers" mapstructure:"headers"`
	DialTimeout Duration          `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	// GoogleDefault 使用 Google Application Default Credentials
	GoogleDefault bool         `yaml:"google_default" mapstructure:"google_default"`
	Scopes        []string     `yaml:"scopes" mapstructure:"scopes"`
	Queue         queue.Config `yaml:"queue" mapstructure:"queue"`
}

// ==================== 基础设施配置 ====================

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Db       int    `yaml:"db" mapstructure:"db"`
}

// KafkaConfig Kafka 配置，Topic 为错误事件的投递 topic
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers       []string `yaml:"brokers" mapstructure:"brokers"`
	Topic         string   `yaml:"topic" mapstructure:"topic"`
	ClientID      string   `yaml:"client_id" mapstructure:"client_id"`
	Username      string   `yaml:"username" mapstructure:"username"`
	Password      string   `yaml:"password" mapstructure:"password"`
	SASLMechanism string   `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism"`
	TLSEnabled    bool     `yaml:"tls_enabled" mapstructure:"tls_enabled"`
	RequiredAcks  string   `yaml:"required_acks" mapstructure:"required_acks"`
	MaxAttempts   int      `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ==================== 认证配置 ====================

// TokenConfig per-RPC JWT 配置
type TokenConfig struct {
	SecretKey       string   `yaml:"secret_key" mapstructure:"secret_key"`
	Issuer          string   `yaml:"issuer" mapstructure:"issuer"`
	TTL             Duration `yaml:"ttl" mapstructure:"ttl"`
	ClockSkew       Duration `yaml:"clock_skew" mapstructure:"clock_skew"`
	BlocklistPrefix string   `yaml:"blocklist_prefix" mapstructure:"blocklist_prefix"`
}

// ==================== 可观测性配置 ====================

// TracingConfig 分布式追踪配置
type TracingConfig struct {
	Exporter     string            `yaml:"exporter" mapstructure:"exporter"`
	Endpoint     string            `yaml:"endpoint" mapstructure:"endpoint"`
	ServiceName  string            `yaml:"service_name" mapstructure:"service_name"`
	Insecure     bool              `yaml:"insecure" mapstructure:"insecure"`
	Headers      map[string]string `yaml:"headers" mapstructure:"headers"`
	SampleRatio  float64           `yaml:"sample_ratio" mapstructure:"sample_ratio"`
	ResourceTags map[string]string `yaml:"resource_tags" mapstructure:"resource_tags"`
}
