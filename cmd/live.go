package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grovetools/fleetview/cli"
	"github.com/grovetools/fleetview/config"
	"github.com/grovetools/fleetview/internal/dashboard/channel"
	"github.com/grovetools/fleetview/internal/dashboard/controller"
	"github.com/grovetools/fleetview/internal/dashboard/store"
	"github.com/grovetools/fleetview/logging"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/pkg/session"
	"github.com/grovetools/fleetview/pkg/spatial"
	"github.com/grovetools/fleetview/pkg/viewport"
	"github.com/grovetools/fleetview/state"
	"github.com/grovetools/fleetview/tui"
	"github.com/grovetools/fleetview/tui/dashboard"
	"github.com/grovetools/fleetview/tui/keymap"
)

func NewLiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Open the live fleet dashboard",
		Long: `Connect to the push channel and keep a live view of robot positions,
battery levels and recent scans. Every push notification triggers a full
snapshot fetch; results from superseded connections are discarded.

Threshold changes in fleetview.yml are picked up while the view is open.`,
		Example: `# Full-screen dashboard
fleetview live

# Log every committed update instead of drawing
fleetview live --headless`,
		Args: cobra.NoArgs,
		RunE: runLive,
	}
	cmd.Flags().Bool("headless", false, "Log each committed update instead of drawing the TUI")
	return cmd
}

// liveView is the wired dashboard core for one live session.
type liveView struct {
	store      *store.Store
	channel    *channel.Channel
	controller *controller.Controller
	engine     *spatial.Engine
}

func newLiveView(cmd *cobra.Command, cfg *config.Config, sess *session.Session) (*liveView, error) {
	client, err := newClient(cmd, cfg, sess)
	if err != nil {
		return nil, err
	}
	dialer, err := newDialer(cfg, sess)
	if err != nil {
		return nil, err
	}

	layout := spatial.DefaultLayout()
	layout.Zones = append([]string(nil), cfg.Warehouse.Zones...)
	layout.Width = layout.BandWidth * float64(len(layout.Zones))
	engine, err := spatial.New(layout)
	if err != nil {
		return nil, err
	}

	st := store.New(store.Options{
		Zones:        cfg.Warehouse.Zones,
		ScanCapacity: cfg.Store.ScanCapacity,
		Thresholds:   cfg.Thresholds,
	})
	ch := channel.New(channel.Options{
		Dialer: dialer,
		Backoff: channel.Backoff{
			MinDelay:   cfg.Channel.MinDelay.Std(),
			MaxDelay:   cfg.Channel.MaxDelay.Std(),
			Multiplier: cfg.Channel.Multiplier,
		},
		Logger: cli.GetLogger(cmd, "channel"),
	})
	ctrl := controller.New(controller.Options{
		Store:     st,
		Source:    ch,
		Fetcher:   client,
		Predictor: client,
		Predictions: models.PredictionRequest{
			PeriodDays: cfg.Predictions.PeriodDays,
			Categories: cfg.Predictions.Categories,
		},
		FetchTimeout: cfg.Server.Timeout.Std(),
		Logger:       cli.GetLogger(cmd, "controller"),
	})

	return &liveView{store: st, channel: ch, controller: ctrl, engine: engine}, nil
}

func newDialer(cfg *config.Config, sess *session.Session) (channel.Dialer, error) {
	if cfg.Channel.Transport == config.TransportMQTT {
		return &channel.MQTTDialer{
			Broker:   cfg.Channel.MQTT.Broker,
			Topic:    cfg.Channel.MQTT.Topic,
			ClientID: cfg.Channel.MQTT.ClientID,
			Token:    sess.Token,
			Timeout:  cfg.Server.Timeout.Std(),
		}, nil
	}
	return channel.NewWebsocketDialer(cfg.Server.BaseURL, cfg.Channel.Path, sess.Token)
}

func runLive(cmd *cobra.Command, args []string) error {
	logger := cli.GetLogger(cmd, "live")
	headless, _ := cmd.Flags().GetBool("headless")

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := sessionStore().Load()
	if err != nil {
		return err
	}
	lv, err := newLiveView(cmd, cfg, sess)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cli.GetOptions(cmd).ConfigFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			watcher, err := config.NewWatcher(cwd, config.DefaultDebounce, cli.GetLogger(cmd, "config"), func(next *config.Config) {
				lv.store.SetThresholds(next.Thresholds)
			})
			if err != nil {
				logger.WithError(err).Warn("Config hot reload disabled")
			} else {
				go watcher.Start(ctx)
				defer watcher.Close()
			}
		}
	}

	lv.channel.Start(ctx)
	go func() {
		if err := lv.controller.Run(ctx); err != nil {
			logger.WithError(err).Error("Controller stopped")
		}
	}()
	defer func() {
		cancel()
		<-lv.controller.Done()
		_ = lv.channel.Close()
		logger.WithField("stats", lv.controller.Stats()).Info("Live view closed")
	}()

	if headless {
		return runHeadless(ctx, lv.store, logger)
	}

	restore := tui.InitializeTUI()
	defer restore()

	vp := viewport.New(cfg.Viewport.Step)
	if zoom, ok, err := state.GetFloat(state.KeyZoom); err != nil {
		logger.WithError(err).Debug("Ignoring saved viewport")
	} else if ok {
		vp.Restore(viewport.State{Zoom: zoom})
	}

	km := keymap.Load(cfg)
	m := dashboard.New(dashboard.Options{
		Store:    lv.store,
		Commands: lv.controller,
		Engine:   lv.engine,
		Viewport: vp,
		KeyMap:   &km,
		Logger:   logging.NewLogger("tui"),
	})
	runErr := dashboard.Run(m)
	if err := state.Set(state.KeyZoom, vp.State().Zoom); err != nil {
		logger.WithError(err).Debug("Failed to save viewport")
	}
	return runErr
}

// runHeadless logs every store update until ctx is done.
func runHeadless(ctx context.Context, reader store.Reader, logger *logrus.Entry) error {
	sub := reader.Subscribe()
	defer reader.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-sub:
			if !ok {
				return nil
			}
			logUpdate(logger, u, reader.View())
		}
	}
}

func logUpdate(logger *logrus.Entry, u store.Update, v store.View) {
	entry := logger.WithFields(logrus.Fields{
		"update":     u.Type,
		"version":    v.Version,
		"phase":      v.Connection.Phase,
		"generation": v.Connection.Generation,
		"robots":     len(v.Robots),
		"scans":      len(v.Scans),
		"paused":     v.Paused,
	})
	switch u.Type {
	case store.UpdateFailure:
		if v.LastFailure != nil {
			entry.WithField("error", v.LastFailure.Err).Warn("Fetch failed, keeping last snapshot")
			return
		}
	case store.UpdateSnapshot:
		entry.WithFields(logrus.Fields{
			"active":   v.Statistics.ActiveRobots,
			"critical": v.Statistics.CriticalItems,
		}).Info("Snapshot committed")
		return
	}
	entry.Info("Dashboard updated")
}
