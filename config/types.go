package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/fleetview/pkg/models"
)

const (
	DefaultVersion           = "1.0"
	DefaultBaseURL           = "http://localhost:8000"
	DefaultTimeout           = 10 * time.Second
	DefaultChannelPath       = "/api/ws/dashboard"
	DefaultMinDelay          = time.Second
	DefaultMaxDelay          = 30 * time.Second
	DefaultMultiplier        = 2.0
	DefaultScanCapacity      = 20
	DefaultHeartbeatTimeout  = 30 * time.Second
	DefaultZoomStep          = 0.2
	DefaultPredictionPeriod  = 7
	DefaultLowThreshold      = 20
	DefaultCriticalThreshold = 10
)

// Transports understood by channel.transport.
const (
	TransportWebsocket = "websocket"
	TransportMQTT      = "mqtt"
)

// Duration is a time.Duration that reads "1.5s" style strings from YAML and
// TOML. A bare integer is taken as seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	return d.parse(string(text))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	if v, err := time.ParseDuration(s); err == nil {
		*d = Duration(v)
		return nil
	}
	var secs int64
	if _, err := fmt.Sscanf(s, "%d", &secs); err == nil && fmt.Sprint(secs) == s {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration %q", s)
}

// JSONSchema describes durations as strings in the generated schema.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^[0-9]+$`,
		Description: "Duration such as 500ms, 10s or 1m30s; a bare integer is seconds",
	}
}

// ServerConfig locates the dashboard backend.
type ServerConfig struct {
	BaseURL string   `yaml:"base_url,omitempty" toml:"base_url,omitempty" mapstructure:"base_url" jsonschema:"description=Base URL of the fleet backend (http or https)"`
	Timeout Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty" mapstructure:"timeout" jsonschema:"description=Per-request timeout for backend calls"`
}

// MQTTConfig selects the broker topic carrying robot updates when
// channel.transport is mqtt.
type MQTTConfig struct {
	Broker   string `yaml:"broker,omitempty" toml:"broker,omitempty" mapstructure:"broker" jsonschema:"description=Broker URL such as tcp://localhost:1883"`
	Topic    string `yaml:"topic,omitempty" toml:"topic,omitempty" mapstructure:"topic" jsonschema:"description=Topic the backend publishes dashboard frames on"`
	ClientID string `yaml:"client_id,omitempty" toml:"client_id,omitempty" mapstructure:"client_id" jsonschema:"description=MQTT client identifier"`
}

// ChannelConfig tunes the live push channel and its reconnect backoff.
type ChannelConfig struct {
	Transport  string     `yaml:"transport,omitempty" toml:"transport,omitempty" mapstructure:"transport" jsonschema:"enum=websocket,enum=mqtt,description=Push transport"`
	Path       string     `yaml:"path,omitempty" toml:"path,omitempty" mapstructure:"path" jsonschema:"description=Websocket path on the backend"`
	MinDelay   Duration   `yaml:"min_delay,omitempty" toml:"min_delay,omitempty" mapstructure:"min_delay" jsonschema:"description=First reconnect delay"`
	MaxDelay   Duration   `yaml:"max_delay,omitempty" toml:"max_delay,omitempty" mapstructure:"max_delay" jsonschema:"description=Reconnect delay cap"`
	Multiplier float64    `yaml:"multiplier,omitempty" toml:"multiplier,omitempty" mapstructure:"multiplier" jsonschema:"description=Backoff growth factor (at least 1)"`
	MQTT       MQTTConfig `yaml:"mqtt,omitempty" toml:"mqtt,omitempty" mapstructure:"mqtt" jsonschema:"description=MQTT transport settings"`
}

// StoreConfig sizes the dashboard state store.
type StoreConfig struct {
	ScanCapacity int `yaml:"scan_capacity,omitempty" toml:"scan_capacity,omitempty" mapstructure:"scan_capacity" jsonschema:"minimum=1,description=Number of recent scans kept"`
}

// WarehouseConfig describes the floor.
type WarehouseConfig struct {
	Zones            []string `yaml:"zones,omitempty" toml:"zones,omitempty" mapstructure:"zones" jsonschema:"description=Zone identifiers in left-to-right floor order"`
	HeartbeatTimeout Duration `yaml:"heartbeat_timeout,omitempty" toml:"heartbeat_timeout,omitempty" mapstructure:"heartbeat_timeout" jsonschema:"description=A robot silent for longer than this is offline (0 disables)"`
}

// ViewportConfig tunes map zoom.
type ViewportConfig struct {
	Step float64 `yaml:"step,omitempty" toml:"step,omitempty" mapstructure:"step" jsonschema:"description=Zoom increment per key press"`
}

// PredictionsConfig holds the defaults for restock prediction requests.
type PredictionsConfig struct {
	PeriodDays int      `yaml:"period_days,omitempty" toml:"period_days,omitempty" mapstructure:"period_days" jsonschema:"minimum=1,description=Forecast horizon in days"`
	Categories []string `yaml:"categories,omitempty" toml:"categories,omitempty" mapstructure:"categories" jsonschema:"description=Product categories to forecast (empty means all)"`
}

// Config is the fleetview configuration file.
type Config struct {
	Version     string                `yaml:"version,omitempty" toml:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Server      ServerConfig          `yaml:"server,omitempty" toml:"server,omitempty" jsonschema:"description=Backend connection"`
	Channel     ChannelConfig         `yaml:"channel,omitempty" toml:"channel,omitempty" jsonschema:"description=Live update channel"`
	Store       StoreConfig           `yaml:"store,omitempty" toml:"store,omitempty" jsonschema:"description=Dashboard state store"`
	Warehouse   WarehouseConfig       `yaml:"warehouse,omitempty" toml:"warehouse,omitempty" jsonschema:"description=Warehouse floor"`
	Thresholds  models.ThresholdTable `yaml:"thresholds,omitempty" toml:"thresholds,omitempty" jsonschema:"description=Stock thresholds used when the backend supplies none"`
	Viewport    ViewportConfig        `yaml:"viewport,omitempty" toml:"viewport,omitempty" jsonschema:"description=Map viewport"`
	Predictions PredictionsConfig     `yaml:"predictions,omitempty" toml:"predictions,omitempty" jsonschema:"description=Restock prediction defaults"`

	// Extensions captures all other top-level keys, e.g. logging.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`

	sources []string
}

// Sources lists the files merged into this configuration, lowest precedence
// first. It is empty when only defaults apply.
func (c *Config) Sources() []string {
	return append([]string(nil), c.sources...)
}

// coreKeys are the top-level keys owned by Config itself.
var coreKeys = map[string]bool{
	"version":     true,
	"server":      true,
	"channel":     true,
	"store":       true,
	"warehouse":   true,
	"thresholds":  true,
	"viewport":    true,
	"predictions": true,
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = DefaultBaseURL
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = Duration(DefaultTimeout)
	}

	if c.Channel.Transport == "" {
		c.Channel.Transport = TransportWebsocket
	}
	if c.Channel.Path == "" {
		c.Channel.Path = DefaultChannelPath
	}
	if c.Channel.MinDelay == 0 {
		c.Channel.MinDelay = Duration(DefaultMinDelay)
	}
	if c.Channel.MaxDelay == 0 {
		c.Channel.MaxDelay = Duration(DefaultMaxDelay)
	}
	if c.Channel.Multiplier == 0 {
		c.Channel.Multiplier = DefaultMultiplier
	}
	if c.Channel.MQTT.ClientID == "" {
		c.Channel.MQTT.ClientID = "fleetview"
	}

	if c.Store.ScanCapacity == 0 {
		c.Store.ScanCapacity = DefaultScanCapacity
	}
	if len(c.Warehouse.Zones) == 0 {
		c.Warehouse.Zones = append([]string(nil), models.DefaultZones...)
	}
	if c.Warehouse.HeartbeatTimeout == 0 {
		c.Warehouse.HeartbeatTimeout = Duration(DefaultHeartbeatTimeout)
	}

	if c.Thresholds.Default == (models.Thresholds{}) {
		c.Thresholds.Default = models.Thresholds{Low: DefaultLowThreshold, Critical: DefaultCriticalThreshold}
	}
	if c.Viewport.Step == 0 {
		c.Viewport.Step = DefaultZoomStep
	}
	if c.Predictions.PeriodDays == 0 {
		c.Predictions.PeriodDays = DefaultPredictionPeriod
	}
}

// UnmarshalTOML decodes a TOML document, collecting unknown top-level tables
// into Extensions the way the yaml inline tag does.
func (c *Config) UnmarshalTOML(data []byte) error {
	type plain Config
	var p plain
	if err := toml.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Config(p)
	for k, v := range raw {
		if coreKeys[k] {
			continue
		}
		if c.Extensions == nil {
			c.Extensions = make(map[string]interface{})
		}
		c.Extensions[k] = v
	}
	return nil
}

// UnmarshalExtension decodes an extension section (any top-level key not
// owned by Config) into target, which must be a pointer. A missing key leaves
// target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
