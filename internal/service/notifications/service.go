// Package notifications formats and sends user-facing confirmations over
// the bot side channel.
package notifications

import (
	"context"
	"fmt"
	"strconv"

	"miniapp-sync-backend/internal/common/errors"
	"miniapp-sync-backend/internal/common/logger"
	tg "miniapp-sync-backend/internal/platform/telegram"
)

type Service struct {
	tg *tg.Client
}

func NewService(tgc *tg.Client) *Service {
	return &Service{tg: tgc}
}

// NotifyReferralConfirmed messages a referrer that their invite was
// credited. Guest referrers have no chat behind them and are skipped.
func (s *Service) NotifyReferralConfirmed(ctx context.Context, referrerID string, bonus int64) error {
	if s == nil || s.tg == nil {
		return nil
	}

	chatID, err := strconv.ParseInt(referrerID, 10, 64)
	if err != nil {
		logger.Debug().Str("referrer_id", referrerID).Msg("referrer has no chat, skipping notification")
		return nil
	}

	text := fmt.Sprintf("🎉 Your referral just joined! %d coins have been added to your balance.", bonus)
	if err := s.tg.SendMessage(ctx, chatID, text); err != nil {
		if _, ok := err.(*tg.RPSError); ok {
			return errors.NewRateLimitError("telegram", 0)
		}
		return errors.NewTelegramAPIError("sendMessage", err)
	}
	return nil
}

// Notify implements the containment notification surface. Messages that
// survive the containment filter land in the log; wiring them to an
// operator chat is a deployment concern.
func (s *Service) Notify(level, message string) {
	logger.Debug().Str("level", level).Str("message", message).Msg("notification")
}
