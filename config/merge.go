package config

import "github.com/grovetools/fleetview/pkg/models"

// mergeConfigs merges override configuration into base. Set fields of
// override win; lists replace rather than append.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	if override.Server.BaseURL != "" {
		result.Server.BaseURL = override.Server.BaseURL
	}
	if override.Server.Timeout != 0 {
		result.Server.Timeout = override.Server.Timeout
	}

	result.Channel = mergeChannel(base.Channel, override.Channel)

	if override.Store.ScanCapacity != 0 {
		result.Store.ScanCapacity = override.Store.ScanCapacity
	}

	if len(override.Warehouse.Zones) > 0 {
		result.Warehouse.Zones = append([]string(nil), override.Warehouse.Zones...)
	}
	if override.Warehouse.HeartbeatTimeout != 0 {
		result.Warehouse.HeartbeatTimeout = override.Warehouse.HeartbeatTimeout
	}

	result.Thresholds = mergeThresholds(base.Thresholds, override.Thresholds)

	if override.Viewport.Step != 0 {
		result.Viewport.Step = override.Viewport.Step
	}

	if override.Predictions.PeriodDays != 0 {
		result.Predictions.PeriodDays = override.Predictions.PeriodDays
	}
	if override.Predictions.Categories != nil {
		result.Predictions.Categories = append([]string(nil), override.Predictions.Categories...)
	}

	if len(base.Extensions) > 0 || len(override.Extensions) > 0 {
		result.Extensions = make(map[string]interface{}, len(base.Extensions)+len(override.Extensions))
		for k, v := range base.Extensions {
			result.Extensions[k] = v
		}
		for k, v := range override.Extensions {
			if bm, ok := result.Extensions[k].(map[string]interface{}); ok {
				if om, ok := v.(map[string]interface{}); ok {
					result.Extensions[k] = mergeMaps(bm, om)
					continue
				}
			}
			result.Extensions[k] = v
		}
	}

	return &result
}

func mergeChannel(base, override ChannelConfig) ChannelConfig {
	if override.Transport != "" {
		base.Transport = override.Transport
	}
	if override.Path != "" {
		base.Path = override.Path
	}
	if override.MinDelay != 0 {
		base.MinDelay = override.MinDelay
	}
	if override.MaxDelay != 0 {
		base.MaxDelay = override.MaxDelay
	}
	if override.Multiplier != 0 {
		base.Multiplier = override.Multiplier
	}
	if override.MQTT.Broker != "" {
		base.MQTT.Broker = override.MQTT.Broker
	}
	if override.MQTT.Topic != "" {
		base.MQTT.Topic = override.MQTT.Topic
	}
	if override.MQTT.ClientID != "" {
		base.MQTT.ClientID = override.MQTT.ClientID
	}
	return base
}

func mergeThresholds(base, override models.ThresholdTable) models.ThresholdTable {
	if override.Default == (models.Thresholds{}) && len(override.Products) == 0 {
		return base.Clone()
	}
	return base.Merge(override)
}

// mergeMaps merges extension sections key by key, recursing into nested maps.
func mergeMaps(base, override map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if bm, ok := out[k].(map[string]interface{}); ok {
			if om, ok := v.(map[string]interface{}); ok {
				out[k] = mergeMaps(bm, om)
				continue
			}
		}
		out[k] = v
	}
	return out
}
