/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rosterhq/playerapi/config"
	"github.com/rosterhq/playerapi/internal/mq"
	"github.com/rosterhq/playerapi/internal/services"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect player lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log player events as they are published",
	Long: `Subscribes to the player events channel on the configured broker and
logs every event until interrupted. Usage:

	MQ_BACKEND=rabbitmq roster events tail
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)

		broker, err := mq.Open(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer func() {
			_ = broker.Close()
		}()

		channel := cfg.MQ.PlayerEventsChannel
		logger.Info("tailing player events", slog.String("channel", channel), slog.String("backend", cfg.MQ.Backend))

		err = broker.Subscribe(cmd.Context(), channel, func(ctx context.Context, msg mq.Message) error {
			event, err := services.DecodePlayerEvent(msg.Data)
			if err != nil {
				logger.Warn("skipping player event", slog.String("message_id", msg.ID), slog.Any("error", err))
				return fmt.Errorf("%w: %v", mq.ErrDiscard, err)
			}
			attrs := []any{
				slog.String("event_id", event.ID),
				slog.String("type", string(event.Type)),
				slog.Int64("player_id", event.PlayerID),
				slog.Time("occurred_at", event.OccurredAt),
			}
			if event.Player != nil {
				attrs = append(attrs,
					slog.String("name", event.Player.Name),
					slog.Int("level", event.Player.Level),
					slog.Bool("banned", event.Player.Banned),
				)
			}
			logger.InfoContext(ctx, "player event", attrs...)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
