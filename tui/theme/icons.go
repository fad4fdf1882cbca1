package theme

import (
	"os"

	"github.com/grovetools/fleetview/config"
)

// Nerd Font icons
const (
	nerdIconRobot     = "󰚩" // md-robot (U+F06A9)
	nerdIconBattery   = "󰁹" // md-battery (U+F0079)
	nerdIconBatteryLo = "󰁺" // md-battery_10 (U+F007A)
	nerdIconOffline   = "󰅛" // md-close_circle_outline (U+F015B)
	nerdIconSuccess   = "󰄬" // md-check (U+F012C)
	nerdIconError     = "" // cod-error (U+EA87)
	nerdIconWarning   = "" // fa-warning (U+F071)
	nerdIconLink      = "󰌘" // md-lan_connect (U+F0318)
	nerdIconUnlink    = "󰌙" // md-lan_disconnect (U+F0319)
	nerdIconPause     = "󰏤" // md-pause (U+F03E4)
	nerdIconScan      = "󰐲" // md-qrcode_scan (U+F0432)
	nerdIconForecast  = "󰄧" // md-chart_line (U+F0127)
)

// ASCII fallbacks
const (
	asciiIconRobot     = "R"
	asciiIconBattery   = "[=]"
	asciiIconBatteryLo = "[ ]"
	asciiIconOffline   = "x"
	asciiIconSuccess   = "ok"
	asciiIconError     = "!!"
	asciiIconWarning   = "!"
	asciiIconLink      = "<->"
	asciiIconUnlink    = "-/-"
	asciiIconPause     = "||"
	asciiIconScan      = "#"
	asciiIconForecast  = "~"
)

var (
	IconRobot     string
	IconBattery   string
	IconBatteryLo string
	IconOffline   string
	IconSuccess   string
	IconError     string
	IconWarning   string
	IconLink      string
	IconUnlink    string
	IconPause     string
	IconScan      string
	IconForecast  string
)

func init() {
	useASCII := os.Getenv("FLEETVIEW_ICONS") == "ascii"
	if !useASCII {
		if cfg, err := config.LoadDefault(); err == nil {
			var tuiCfg struct {
				Icons string `yaml:"icons"`
			}
			if cfg.UnmarshalExtension("tui", &tuiCfg) == nil && tuiCfg.Icons == "ascii" {
				useASCII = true
			}
		}
	}
	SetASCIIIcons(useASCII)
}

// SetASCIIIcons switches between the Nerd Font and plain ASCII icon sets.
func SetASCIIIcons(ascii bool) {
	if ascii {
		IconRobot = asciiIconRobot
		IconBattery = asciiIconBattery
		IconBatteryLo = asciiIconBatteryLo
		IconOffline = asciiIconOffline
		IconSuccess = asciiIconSuccess
		IconError = asciiIconError
		IconWarning = asciiIconWarning
		IconLink = asciiIconLink
		IconUnlink = asciiIconUnlink
		IconPause = asciiIconPause
		IconScan = asciiIconScan
		IconForecast = asciiIconForecast
		return
	}
	IconRobot = nerdIconRobot
	IconBattery = nerdIconBattery
	IconBatteryLo = nerdIconBatteryLo
	IconOffline = nerdIconOffline
	IconSuccess = nerdIconSuccess
	IconError = nerdIconError
	IconWarning = nerdIconWarning
	IconLink = nerdIconLink
	IconUnlink = nerdIconUnlink
	IconPause = nerdIconPause
	IconScan = nerdIconScan
	IconForecast = nerdIconForecast
}
