package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	WithdrawResult string `mapstructure:"withdraw_result"`
	RewardEvent    string `mapstructure:"reward_event"`
}

// BusinessConfig 业务参数
//
// 奖励常量和管理员ID都放在配置里，启动时注入各层，
// 测试可以直接构造不同参数的 Config，不依赖进程级全局状态。
type BusinessConfig struct {
	AdminID            int64 `mapstructure:"admin_id"`             // 管理员的用户ID（共享密钥式校验）
	AdReward           int64 `mapstructure:"ad_reward"`            // 看广告奖励（积分）
	RefBonus           int64 `mapstructure:"ref_bonus"`            // 邀请奖励（积分，一次性）
	DailyBonus         int64 `mapstructure:"daily_bonus"`          // 每日签到奖励（积分）
	DailyCooldownHours int   `mapstructure:"daily_cooldown_hours"` // 签到冷却时间（小时）
	WithdrawUnitPoints int64 `mapstructure:"withdraw_unit_points"` // 兑换单位：多少积分
	WithdrawUnitTaka   int64 `mapstructure:"withdraw_unit_taka"`   // 兑换单位对应多少塔卡
	MinWithdrawPoints  int64 `mapstructure:"min_withdraw_points"`  // 最低提现积分
	PendingAlertHours  int   `mapstructure:"pending_alert_hours"`  // 提现挂起多久后告警
	MaxRetryCount      int   `mapstructure:"max_retry_count"`      // outbox 消息最大重试次数
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
