package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/models"
)

// NotificationService turns finished evaluations into market-timing alerts
// and delivers them over Telegram. Delivery is best effort: failures are
// logged and never block an evaluation.
type NotificationService struct {
	bot    *bot.Bot
	chatID int64
	logger *logrus.Logger
}

// NewNotificationService creates the service. Without a bot token it still
// builds alerts but sends nothing.
func NewNotificationService(cfg config.TelegramConfig, logger *logrus.Logger) *NotificationService {
	ns := &NotificationService{logger: logger}
	if cfg.BotToken != "" {
		telegramBot, err := bot.New(cfg.BotToken)
		if err != nil {
			logger.WithError(err).Warn("telegram bot unavailable, alerts disabled")
		} else {
			ns.bot = telegramBot
		}
	}
	if cfg.ChatID != "" {
		chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
		if err != nil {
			logger.WithError(err).Warn("invalid telegram chat id, alerts disabled")
		} else {
			ns.chatID = chatID
		}
	}
	return ns
}

// NotifyEvaluation builds and delivers the alerts for one evaluation.
func (ns *NotificationService) NotifyEvaluation(ctx context.Context, eval *models.Evaluation) {
	alerts := BuildAlerts(eval)
	if ns.bot == nil || ns.chatID == 0 || len(alerts) == 0 {
		return
	}

	message := formatAlertMessage(eval, alerts)
	_, err := ns.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ns.chatID,
		Text:      message,
		ParseMode: botmodels.ParseModeMarkdown,
	})
	if err != nil {
		ns.logger.WithError(err).Warn("failed to send telegram alert")
		return
	}
	ns.logger.WithFields(logrus.Fields{
		"evaluation_id": eval.ID,
		"alerts":        len(alerts),
	}).Info("market timing alerts delivered")
}

// BuildAlerts derives user-facing alerts from an evaluation: the phase call,
// the timing signal, and notable contributing conditions.
func BuildAlerts(eval *models.Evaluation) []models.Alert {
	var alerts []models.Alert

	if phase, ok := eval.Assessment.Outcome.Phase(); ok {
		alerts = append(alerts, models.Alert{
			Type:       "economic_cycle",
			Message:    fmt.Sprintf("The economy is in the %s phase of the cycle (confidence %.0f%%).", phase, eval.Assessment.Confidence*100),
			Importance: "high",
		})
	} else {
		alerts = append(alerts, models.Alert{
			Type:       "economic_cycle",
			Message:    "Cycle phase is undetermined: indicators gave no usable signal.",
			Importance: "high",
		})
	}

	alerts = append(alerts, models.Alert{
		Type:       "market_timing",
		Message:    fmt.Sprintf("Market timing signal: %s (score %.1f), suggested posture %s.", eval.Timing.Band, eval.Timing.Value, eval.RiskPosture),
		Importance: "high",
	})

	for _, signal := range eval.Assessment.Signals {
		if signal.Indicator == "yield_curve" && signal.Vote == models.PhaseRecession {
			alerts = append(alerts, models.Alert{
				Type:       "yield_curve",
				Message:    "Yield curve points to contraction ahead: possible signal of future economic slowdown.",
				Importance: "medium",
			})
			break
		}
	}

	if len(eval.ExcludedIndicators) > 0 {
		alerts = append(alerts, models.Alert{
			Type:       "data_quality",
			Message:    fmt.Sprintf("Indicators excluded for insufficient history: %s.", strings.Join(eval.ExcludedIndicators, ", ")),
			Importance: "medium",
		})
	}

	return alerts
}

func formatAlertMessage(eval *models.Evaluation, alerts []models.Alert) string {
	var b strings.Builder
	b.WriteString("*Market Timing Update*\n")
	b.WriteString(fmt.Sprintf("_as of %s_\n\n", eval.AsOf.Format("2006-01-02")))
	for _, alert := range alerts {
		b.WriteString(fmt.Sprintf("• %s\n", alert.Message))
	}
	return b.String()
}
