package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level          string `yaml:"level" default:"info"`
		Format         string `yaml:"format" default:"json"`
		Output         string `yaml:"output" default:"stdout"`
		RecentCapacity int    `yaml:"recent_capacity" default:"200"`
	} `yaml:"logging"`
	Feed struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		RESTURL        string        `yaml:"rest_url" default:"https://finnhub.io/api/v1"`
		Token          string        `yaml:"token"`
		ConnectTimeout time.Duration `yaml:"connect_timeout" default:"15s"`
	} `yaml:"feed"`
	Market struct {
		Open          string        `yaml:"open" default:"09:30"`
		Close         string        `yaml:"close" default:"16:00"`
		PollInterval  time.Duration `yaml:"poll_interval" default:"5s"`
		BarInterval   time.Duration `yaml:"bar_interval" default:"1m"`
		DailyBarCount int           `yaml:"daily_bar_count" default:"30"`
	} `yaml:"market"`
	Engine struct {
		Symbols         []string `yaml:"symbols"`
		CoreShares      int      `yaml:"core_shares" default:"100"`
		TMaxShares      int      `yaml:"t_max_shares" default:"50"`
		TStepShares     int      `yaml:"t_step_shares" default:"25"`
		PriceImprovePct float64  `yaml:"price_improve_pct" default:"0.001"`
		SimulationMode  bool     `yaml:"simulation_mode" default:"true"`
	} `yaml:"engine"`
	Risk struct {
		MaxRoundTrips    int           `yaml:"max_round_trips" default:"2"`
		MaxDailyLoss     float64       `yaml:"max_daily_loss" default:"100"`
		Cooldown         time.Duration `yaml:"cooldown" default:"15m"`
		OpenBuffer       time.Duration `yaml:"open_buffer" default:"30m"`
		EventOpenBuffer  time.Duration `yaml:"event_open_buffer" default:"60m"`
		MaxSpreadPct     float64       `yaml:"max_spread_pct" default:"0.005"`
		MinDepth         int64         `yaml:"min_depth" default:"100"`
		CloseOnlyAfter   string        `yaml:"close_only_after" default:"15:45"`
		ClassifyInterval time.Duration `yaml:"classify_interval" default:"5m"`
	} `yaml:"risk"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"t0pilot.events"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"t0pilot"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		Token   string `yaml:"token"`
		ChatID  int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// Load reads and parses a YAML configuration file, applying defaults before
// validation.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables, so secrets stay out of the config file.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_TOKEN"); v != "" {
		c.Feed.Token = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Engine.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}

	return c, nil
}

// Validate checks cross-field requirements defaults cannot express.
func (c *Config) Validate() error {
	if c.Feed.WebSocketURL == "" {
		return fmt.Errorf("feed.websocket_url is required")
	}
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("engine.symbols cannot be empty")
	}
	if c.Engine.TStepShares <= 0 || c.Engine.TMaxShares < c.Engine.TStepShares {
		return fmt.Errorf("engine sizing invalid: step %d, max %d",
			c.Engine.TStepShares, c.Engine.TMaxShares)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host required when clickhouse is enabled")
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram.token and telegram.chat_id required when telegram is enabled")
	}
	return nil
}
