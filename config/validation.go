package config

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/grovetools/fleetview/errors"
)

var zoneRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if err := validateURL("server.base_url", c.Server.BaseURL, "http", "https"); err != nil {
		return err
	}
	if c.Server.Timeout < 0 {
		return invalid("server.timeout", "must not be negative")
	}

	if err := validateChannel(&c.Channel); err != nil {
		return err
	}

	if c.Store.ScanCapacity < 1 {
		return invalid("store.scan_capacity", "must be at least 1")
	}

	if err := validateZones(c.Warehouse.Zones); err != nil {
		return err
	}
	if c.Warehouse.HeartbeatTimeout < 0 {
		return invalid("warehouse.heartbeat_timeout", "must not be negative")
	}

	if err := validateThreshold("thresholds.default", c.Thresholds.Default.Low, c.Thresholds.Default.Critical); err != nil {
		return err
	}
	for sku, th := range c.Thresholds.Products {
		if err := validateThreshold("thresholds.products."+sku, th.Low, th.Critical); err != nil {
			return err
		}
	}

	if c.Viewport.Step <= 0 || c.Viewport.Step > 1 {
		return invalid("viewport.step", "must be in (0, 1]")
	}
	if c.Predictions.PeriodDays < 1 {
		return invalid("predictions.period_days", "must be at least 1")
	}

	return nil
}

func validateChannel(ch *ChannelConfig) error {
	switch ch.Transport {
	case TransportWebsocket:
	case TransportMQTT:
		if ch.MQTT.Topic == "" {
			return invalid("channel.mqtt.topic", "is required for the mqtt transport")
		}
		if err := validateURL("channel.mqtt.broker", ch.MQTT.Broker, "tcp", "ssl", "ws", "wss", "mqtt", "mqtts"); err != nil {
			return err
		}
	default:
		return invalid("channel.transport", fmt.Sprintf("unknown transport %q", ch.Transport))
	}

	if ch.MinDelay <= 0 {
		return invalid("channel.min_delay", "must be positive")
	}
	if ch.MaxDelay < ch.MinDelay {
		return invalid("channel.max_delay", "must not be below channel.min_delay")
	}
	if ch.Multiplier < 1 {
		return invalid("channel.multiplier", "must be at least 1")
	}
	return nil
}

func validateZones(zones []string) error {
	seen := make(map[string]bool, len(zones))
	for _, z := range zones {
		if !zoneRegex.MatchString(z) {
			return invalid("warehouse.zones", fmt.Sprintf("invalid zone %q", z)).WithDetail("zone", z)
		}
		if seen[z] {
			return invalid("warehouse.zones", fmt.Sprintf("duplicate zone %q", z)).WithDetail("zone", z)
		}
		seen[z] = true
	}
	return nil
}

func validateThreshold(field string, low, critical int) error {
	if critical < 0 {
		return invalid(field, "critical must not be negative")
	}
	if low < critical {
		return invalid(field, "low must not be below critical")
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return invalid(field, fmt.Sprintf("invalid URL %q", raw))
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return invalid(field, fmt.Sprintf("unsupported scheme %q", u.Scheme))
}

func invalid(field, reason string) *errors.FleetError {
	return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s %s", field, reason)).
		WithDetail("field", field)
}
