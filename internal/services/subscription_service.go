package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/quota"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

var ErrUnknownSubscriber = errors.New("webhook does not name a known user")

// SubscriptionService keeps subscription rows in line with RevenueCat and
// moves each subscriber's quota tier with them.
type SubscriptionService struct {
	db       *gorm.DB
	sessions *session.Manager
}

func NewSubscriptionService(db *gorm.DB, sessions *session.Manager) *SubscriptionService {
	return &SubscriptionService{db: db, sessions: sessions}
}

func (s *SubscriptionService) HandleWebhookEvent(ctx context.Context, event *dto.RevenueCatEvent) error {
	switch event.Type {
	case "INITIAL_PURCHASE", "RENEWAL", "PRODUCT_CHANGE", "UNCANCELLATION":
		return s.activate(ctx, event)
	case "CANCELLATION":
		return s.setStatus(ctx, event, "cancelled")
	case "EXPIRATION":
		if err := s.setStatus(ctx, event, "expired"); err != nil {
			return err
		}
		userID, err := subscriberID(event)
		if err != nil {
			return err
		}
		return s.SetTier(ctx, userID, quota.TierFree)
	default:
		slog.Info("ignoring webhook event", "event_type", event.Type)
		return nil
	}
}

// TierFor maps an entitlement or product id onto a quota tier. Anything that
// is not recognisably premium counts as basic.
func TierFor(event *dto.RevenueCatEvent) quota.Tier {
	names := append([]string{event.ProductID}, event.EntitlementIDs...)
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), "premium") {
			return quota.TierPremium
		}
	}
	return quota.TierBasic
}

func subscriberID(event *dto.RevenueCatEvent) (uuid.UUID, error) {
	for _, id := range []string{event.AppUserID, event.OriginalAppUserID} {
		if parsed, err := uuid.Parse(id); err == nil {
			return parsed, nil
		}
	}
	return uuid.Nil, ErrUnknownSubscriber
}

func (s *SubscriptionService) activate(ctx context.Context, event *dto.RevenueCatEvent) error {
	userID, err := subscriberID(event)
	if err != nil {
		return err
	}
	tier := TierFor(event)

	var sub models.Subscription
	err = s.db.WithContext(ctx).Where("revenuecat_id = ?", event.AppUserID).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.Subscription{
			UserID:             userID,
			RevenueCatID:       event.AppUserID,
			ProductID:          event.ProductID,
			Tier:               string(tier),
			Status:             "active",
			CurrentPeriodStart: msToTime(event.PurchasedAtMs),
			CurrentPeriodEnd:   msToTime(event.ExpirationAtMs),
		}
		if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
	case err != nil:
		return fmt.Errorf("find subscription: %w", err)
	default:
		err := s.db.WithContext(ctx).Model(&sub).Updates(map[string]interface{}{
			"product_id":           event.ProductID,
			"tier":                 string(tier),
			"status":               "active",
			"current_period_start": msToTime(event.PurchasedAtMs),
			"current_period_end":   msToTime(event.ExpirationAtMs),
		}).Error
		if err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}
	}
	return s.SetTier(ctx, userID, tier)
}

func (s *SubscriptionService) setStatus(ctx context.Context, event *dto.RevenueCatEvent, status string) error {
	return s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("revenuecat_id = ?", event.AppUserID).
		Update("status", status).Error
}

// SetTier moves the user to tier. Counters are only reset when the tier
// actually changes or a trial is replaced by a paid tier.
func (s *SubscriptionService) SetTier(ctx context.Context, userID uuid.UUID, tier quota.Tier) error {
	return s.sessions.Update(ctx, userID.String(), func(st *session.State) error {
		if st.Limits.Tier == tier && !st.Limits.IsTrial {
			return nil
		}
		st.Limits.SetTier(tier, s.sessions.Now())
		return nil
	})
}

func msToTime(ms int64) time.Time {
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond))
}
