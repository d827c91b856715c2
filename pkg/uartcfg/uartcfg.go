package uartcfg

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	MinBaudRate = 1200
	MaxBaudRate = 921600

	DefaultBaudRate    = 115200
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultIdleBackoff = 10 * time.Millisecond
	DefaultBlockSize   = 512
	DefaultBlockDelay  = 10 * time.Millisecond

	EnvPrefix = "UARTDBG"
)

// Parity is the parity setting of a serial connection
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "None"
	case ParityEven:
		return "Even"
	case ParityOdd:
		return "Odd"
	default:
		return "Unknown"
	}
}

// ParseParity accepts None, Even or Odd in any case
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return ParityNone, nil
	case "even", "e":
		return ParityEven, nil
	case "odd", "o":
		return ParityOdd, nil
	}
	return ParityNone, fmt.Errorf("invalid parity %q (expected None, Even or Odd)", s)
}

// StopBits is the number of stop bits of a serial connection
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsTwo:
		return "2"
	default:
		return "Unknown"
	}
}

// ParseStopBits accepts 1, 2, One or Two
func ParseStopBits(s string) (StopBits, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "one":
		return StopBitsOne, nil
	case "2", "two":
		return StopBitsTwo, nil
	}
	return StopBitsOne, fmt.Errorf("invalid stop bits %q (expected 1 or 2)", s)
}

// Connection holds the parameters a device link is opened with.
// It is immutable once the link is open.
type Connection struct {
	Port        string
	BaudRate    int
	Parity      Parity
	StopBits    StopBits
	ReadTimeout time.Duration
}

// DefaultConnection returns 115200 8N1 with the default read timeout
func DefaultConnection(port string) Connection {
	return Connection{
		Port:        port,
		BaudRate:    DefaultBaudRate,
		Parity:      ParityNone,
		StopBits:    StopBitsOne,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Validate checks the connection parameters
func (c Connection) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("no serial port selected")
	}
	if c.BaudRate < MinBaudRate || c.BaudRate > MaxBaudRate {
		return fmt.Errorf("baud rate %d out of range [%d, %d]", c.BaudRate, MinBaudRate, MaxBaudRate)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %s", c.ReadTimeout)
	}
	return nil
}

// String renders the connection like "/dev/ttyUSB0 115200 8N1"
func (c Connection) String() string {
	return fmt.Sprintf("%s %d 8%s%s", c.Port, c.BaudRate, c.Parity.String()[:1], c.StopBits)
}

type PoolConfig struct {
	Workers int `mapstructure:"workers"`
	Queue   int `mapstructure:"queue"`
}

type ScriptsConfig struct {
	Workers int           `mapstructure:"workers"`
	Queue   int           `mapstructure:"queue"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PanelsConfig struct {
	Queue      int  `mapstructure:"queue"`
	AllowClose bool `mapstructure:"allow_close"`
}

type UIConfig struct {
	Tick             time.Duration `mapstructure:"tick"`
	MaxEventsPerTick int           `mapstructure:"max_events_per_tick"`
	Mode             string        `mapstructure:"mode"`  // debug or terminal
	Theme            string        `mapstructure:"theme"` // auto, dark or light
}

type FlashConfig struct {
	BlockSize int           `mapstructure:"block_size"`
	Delay     time.Duration `mapstructure:"delay"`
}

type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text or json
	Output     string `mapstructure:"output"` // stderr, stdout or file path
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Config is the full application configuration
type Config struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ParityName  string        `mapstructure:"parity"`
	StopBitsStr string        `mapstructure:"stop_bits"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	IdleBackoff time.Duration `mapstructure:"idle_backoff"`

	TX      PoolConfig    `mapstructure:"tx"`
	Scripts ScriptsConfig `mapstructure:"scripts"`
	Panels  PanelsConfig  `mapstructure:"panels"`
	UI      UIConfig      `mapstructure:"ui"`
	Flash   FlashConfig   `mapstructure:"flash"`
	API     APIConfig     `mapstructure:"api"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Connection builds the validated connection parameters from the config
func (c *Config) Connection() (Connection, error) {
	parity, err := ParseParity(c.ParityName)
	if err != nil {
		return Connection{}, err
	}
	stopBits, err := ParseStopBits(c.StopBitsStr)
	if err != nil {
		return Connection{}, err
	}
	conn := Connection{
		Port:        c.Port,
		BaudRate:    c.Baud,
		Parity:      parity,
		StopBits:    stopBits,
		ReadTimeout: c.ReadTimeout,
	}
	return conn, conn.Validate()
}

// Validate checks everything except the port, which may be chosen later
func (c *Config) Validate() error {
	if c.Baud < MinBaudRate || c.Baud > MaxBaudRate {
		return fmt.Errorf("baud rate %d out of range [%d, %d]", c.Baud, MinBaudRate, MaxBaudRate)
	}
	if _, err := ParseParity(c.ParityName); err != nil {
		return err
	}
	if _, err := ParseStopBits(c.StopBitsStr); err != nil {
		return err
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read_timeout must be positive")
	}
	if c.IdleBackoff <= 0 {
		return errors.New("idle_backoff must be positive")
	}
	if c.TX.Workers < 1 || c.TX.Queue < 1 {
		return errors.New("tx.workers and tx.queue must be at least 1")
	}
	if c.Scripts.Workers < 1 || c.Scripts.Queue < 1 {
		return errors.New("scripts.workers and scripts.queue must be at least 1")
	}
	if c.Scripts.Timeout < 0 {
		return errors.New("scripts.timeout must not be negative")
	}
	if c.Panels.Queue < 1 {
		return errors.New("panels.queue must be at least 1")
	}
	if c.UI.Tick <= 0 || c.UI.Tick > time.Second {
		return fmt.Errorf("ui.tick must be in (0, 1s], got %s", c.UI.Tick)
	}
	if c.UI.MaxEventsPerTick < 0 {
		return errors.New("ui.max_events_per_tick must not be negative")
	}
	switch c.UI.Mode {
	case "debug", "terminal":
	default:
		return fmt.Errorf("invalid ui.mode %q (expected debug or terminal)", c.UI.Mode)
	}
	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		return fmt.Errorf("invalid ui.theme %q (expected auto, dark or light)", c.UI.Theme)
	}
	if c.Flash.BlockSize < 1 {
		return errors.New("flash.block_size must be at least 1")
	}
	if c.Flash.Delay < 0 {
		return errors.New("flash.delay must not be negative")
	}
	return nil
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "")
	v.SetDefault("baud", DefaultBaudRate)
	v.SetDefault("parity", "None")
	v.SetDefault("stop_bits", "1")
	v.SetDefault("read_timeout", DefaultReadTimeout)
	v.SetDefault("idle_backoff", DefaultIdleBackoff)

	v.SetDefault("tx.workers", 1)
	v.SetDefault("tx.queue", 256)

	v.SetDefault("scripts.workers", 4)
	v.SetDefault("scripts.queue", 16)
	v.SetDefault("scripts.timeout", time.Duration(0))

	v.SetDefault("panels.queue", 4096)
	v.SetDefault("panels.allow_close", true)

	v.SetDefault("ui.tick", 100*time.Millisecond)
	v.SetDefault("ui.max_events_per_tick", 4096)
	v.SetDefault("ui.mode", "debug")
	v.SetDefault("ui.theme", "auto")

	v.SetDefault("flash.block_size", DefaultBlockSize)
	v.SetDefault("flash.delay", DefaultBlockDelay)

	v.SetDefault("api.enabled", false)
	v.SetDefault("api.listen", "127.0.0.1:8642")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 7)
}

// flagKeys maps command line flag names to config keys
var flagKeys = map[string]string{
	"port":           "port",
	"baud":           "baud",
	"parity":         "parity",
	"stop-bits":      "stop_bits",
	"read-timeout":   "read_timeout",
	"tx-workers":     "tx.workers",
	"script-timeout": "scripts.timeout",
	"allow-close":    "panels.allow_close",
	"mode":           "ui.mode",
	"theme":          "ui.theme",
	"block-delay":    "flash.delay",
	"api":            "api.enabled",
	"api-listen":     "api.listen",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"log-output":     "logging.output",
}

// BindFlags binds the flags that exist in fs to their config keys.
// Flags not registered in fs are skipped.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "binding flag --%s", name)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment overrides
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and unmarshals a validated Config
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &cfg, nil
}
