package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/billing/domain"
	"github.com/hostwise/nightly/internal/billing/resolver"
	"github.com/hostwise/nightly/internal/billing/webhook"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/internal/config"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	trialdomain "github.com/hostwise/nightly/internal/trial/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const provider = "stripe"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Config     config.Config
	Repo       domain.Repository
	Provider   domain.Provider
	Owners     ownerdomain.Repository
	Properties propertydomain.Repository
	Groups     groupdomain.Repository
	Trial      trialdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	cfg        config.Config
	repo       domain.Repository
	provider   domain.Provider
	owners     ownerdomain.Repository
	properties propertydomain.Repository
	groups     groupdomain.Repository
	trial      trialdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("billing.service"),
		clock:      p.Clock,
		genID:      p.GenID,
		cfg:        p.Config,
		repo:       p.Repo,
		provider:   p.Provider,
		owners:     p.Owners,
		properties: p.Properties,
		groups:     p.Groups,
		trial:      p.Trial,
	}
}

func (s *Service) Reconcile(ctx context.Context, ownerID snowflake.ID) (domain.Quantities, error) {
	if ownerID == 0 {
		return domain.Quantities{}, domain.ErrInvalidOwner
	}

	quantities, err := s.resolveQuantities(ctx, ownerID)
	if err != nil {
		return domain.Quantities{}, err
	}

	subscription, err := s.repo.FindByOwner(ctx, s.db, ownerID)
	if err != nil {
		return domain.Quantities{}, err
	}
	if subscription == nil {
		// Nothing to converge until checkout completes.
		return quantities, nil
	}

	if err := s.convergeItems(ctx, subscription, quantities); err != nil {
		return quantities, err
	}

	subscription.ParentQty = quantities.Parent
	subscription.ChildQty = quantities.Child
	subscription.UpdatedAt = s.clock.Now()
	if err := s.repo.Upsert(ctx, s.db, subscription); err != nil {
		return quantities, err
	}

	s.log.Info("billing.reconciled",
		zap.String("owner_id", ownerID.String()),
		zap.Int("parent_qty", quantities.Parent),
		zap.Int("child_qty", quantities.Child),
	)
	return quantities, nil
}

func (s *Service) resolveQuantities(ctx context.Context, ownerID snowflake.ID) (domain.Quantities, error) {
	properties, err := s.properties.ListAll(ctx, s.db, ownerID)
	if err != nil {
		return domain.Quantities{}, err
	}

	groups, err := s.groups.List(ctx, s.db, ownerID)
	if err != nil {
		return domain.Quantities{}, err
	}

	var memberships []*groupdomain.Membership
	for _, group := range groups {
		members, err := s.groups.ListMembers(ctx, s.db, group.ID)
		if err != nil {
			return domain.Quantities{}, err
		}
		memberships = append(memberships, members...)
	}

	return resolver.Resolve(properties, groups, memberships), nil
}

// convergeItems pushes quantity changes to the provider. An item whose
// quantity drops to zero is deleted; a missing item with demand is created.
func (s *Service) convergeItems(ctx context.Context, subscription *domain.Subscription, quantities domain.Quantities) error {
	var err error
	subscription.ParentItemID, err = s.convergeItem(ctx, subscription,
		subscription.ParentItemID, s.cfg.BillingParentPriceID, subscription.ParentQty, quantities.Parent)
	if err != nil {
		return err
	}
	subscription.ChildItemID, err = s.convergeItem(ctx, subscription,
		subscription.ChildItemID, s.cfg.BillingChildPriceID, subscription.ChildQty, quantities.Child)
	return err
}

func (s *Service) convergeItem(ctx context.Context, subscription *domain.Subscription, itemID, priceID string, current, desired int) (string, error) {
	switch {
	case itemID == "" && desired > 0:
		return s.provider.CreateItem(ctx, subscription.ProviderID, priceID, desired)
	case itemID != "" && desired == 0:
		if err := s.provider.DeleteItem(ctx, itemID); err != nil {
			return itemID, err
		}
		return "", nil
	case itemID != "" && desired != current:
		return itemID, s.provider.UpdateItemQuantity(ctx, itemID, desired)
	default:
		return itemID, nil
	}
}

func (s *Service) CreateCheckoutSession(ctx context.Context, successURL, cancelURL string) (domain.CheckoutSession, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.CheckoutSession{}, domain.ErrInvalidOwner
	}

	owner, err := s.owners.FindByID(ctx, s.db, ownerID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if owner == nil {
		return domain.CheckoutSession{}, domain.ErrInvalidOwner
	}

	quantities, err := s.resolveQuantities(ctx, ownerID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if quantities.Parent == 0 {
		quantities.Parent = 1
	}

	trialDays, err := s.trial.TrialDays(ctx, ownerID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		CustomerEmail:     owner.Email,
		ClientReferenceID: ownerID.String(),
		ParentPriceID:     s.cfg.BillingParentPriceID,
		ChildPriceID:      s.cfg.BillingChildPriceID,
		ParentQty:         quantities.Parent,
		ChildQty:          quantities.Child,
		TrialDays:         trialDays,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
	})
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	s.log.Info("billing.checkout_created",
		zap.String("owner_id", ownerID.String()),
		zap.Int("trial_days", trialDays),
	)
	return session, nil
}

// recordCheckoutFingerprints marks the owner's PMS listings as trial
// consumers once checkout completes. An abandoned session must not burn
// the fingerprints. Failures only cost anti-abuse coverage.
func (s *Service) recordCheckoutFingerprints(ctx context.Context, ownerID snowflake.ID) {
	properties, err := s.properties.ListAll(ctx, s.db, ownerID)
	if err != nil {
		s.log.Warn("billing.fingerprint_listing_failed", zap.Error(err))
		return
	}

	byType := make(map[string][]string)
	for _, property := range properties {
		if property.PMSID == nil || *property.PMSID == "" || property.PMSType == "" {
			continue
		}
		byType[property.PMSType] = append(byType[property.PMSType], *property.PMSID)
	}
	for pmsType, pmsIDs := range byType {
		if err := s.trial.Record(ctx, ownerID, trialdomain.SourceCheckout, pmsType, pmsIDs); err != nil {
			s.log.Warn("billing.fingerprint_record_failed", zap.Error(err))
		}
	}
}

// webhookEvent is the provider delivery envelope.
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			Customer          string `json:"customer"`
			Subscription      string `json:"subscription"`
			Status            string `json:"status"`
			ClientReferenceID string `json:"client_reference_id"`
			TrialEnd          int64  `json:"trial_end"`
		} `json:"object"`
	} `json:"data"`
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (domain.WebhookResult, error) {
	if !webhook.Verify(payload, signature, s.cfg.BillingWebhookSecret, s.clock.Now()) {
		return domain.WebhookResult{}, domain.ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.WebhookResult{}, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	fresh, err := s.repo.RecordEvent(ctx, s.db, &domain.BillingEvent{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: event.ID,
		Type:            event.Type,
		ReceivedAt:      s.clock.Now(),
	})
	if err != nil {
		return domain.WebhookResult{}, err
	}
	if !fresh {
		return domain.WebhookResult{Duplicate: true, Type: event.Type}, nil
	}

	switch event.Type {
	case "checkout.session.completed":
		err = s.applyCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		err = s.applySubscriptionStatus(ctx, event.Data.Object.ID, event.Data.Object.Status)
	case "customer.subscription.deleted":
		err = s.applySubscriptionStatus(ctx, event.Data.Object.ID, "canceled")
	case "invoice.payment_failed":
		err = s.applySubscriptionStatus(ctx, event.Data.Object.Subscription, "past_due")
	default:
		s.log.Debug("billing.webhook_ignored", zap.String("type", event.Type))
	}
	if err != nil {
		return domain.WebhookResult{}, err
	}
	return domain.WebhookResult{Type: event.Type}, nil
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, event webhookEvent) error {
	object := event.Data.Object

	raw, err := strconv.ParseInt(object.ClientReferenceID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: client_reference_id %q", domain.ErrProvider, object.ClientReferenceID)
	}
	ownerID := snowflake.ID(raw)

	status := domain.SubscriptionActive
	var trialEnd *time.Time
	if object.TrialEnd > 0 {
		t := time.Unix(object.TrialEnd, 0).UTC()
		trialEnd = &t
		status = domain.SubscriptionTrialing
	}

	subscription, err := s.repo.FindByOwner(ctx, s.db, ownerID)
	if err != nil {
		return err
	}
	if subscription == nil {
		subscription = &domain.Subscription{
			ID:        s.genID.Generate(),
			OwnerID:   ownerID,
			CreatedAt: s.clock.Now(),
		}
	}
	subscription.ProviderID = object.Subscription
	subscription.CustomerID = object.Customer
	subscription.Status = status
	subscription.TrialEndsAt = trialEnd
	subscription.UpdatedAt = s.clock.Now()
	if err := s.repo.Upsert(ctx, s.db, subscription); err != nil {
		return err
	}

	if err := s.owners.UpdateAccessStatus(ctx, s.db, ownerID, ownerdomain.AccessActive); err != nil {
		return err
	}

	s.recordCheckoutFingerprints(ctx, ownerID)

	// Quantities may have drifted between checkout and completion.
	if _, err := s.Reconcile(ctx, ownerID); err != nil {
		s.log.Warn("billing.post_checkout_reconcile_failed", zap.Error(err))
	}
	return nil
}

func (s *Service) applySubscriptionStatus(ctx context.Context, providerID, rawStatus string) error {
	if providerID == "" {
		return fmt.Errorf("%w: missing subscription id", domain.ErrProvider)
	}

	subscription, err := s.repo.FindByProviderID(ctx, s.db, providerID)
	if err != nil {
		return err
	}
	if subscription == nil {
		s.log.Warn("billing.webhook_unknown_subscription", zap.String("provider_id", providerID))
		return nil
	}

	status, access := mapStatus(rawStatus)
	subscription.Status = status
	subscription.UpdatedAt = s.clock.Now()
	if err := s.repo.Upsert(ctx, s.db, subscription); err != nil {
		return err
	}
	return s.owners.UpdateAccessStatus(ctx, s.db, subscription.OwnerID, access)
}

func mapStatus(raw string) (domain.SubscriptionStatus, ownerdomain.AccessStatus) {
	switch raw {
	case "trialing":
		return domain.SubscriptionTrialing, ownerdomain.AccessActive
	case "active":
		return domain.SubscriptionActive, ownerdomain.AccessActive
	case "past_due", "unpaid":
		return domain.SubscriptionPastDue, ownerdomain.AccessPaymentFailed
	case "canceled", "incomplete_expired":
		return domain.SubscriptionCanceled, ownerdomain.AccessSubscriptionCanceled
	default:
		return domain.SubscriptionActive, ownerdomain.AccessActive
	}
}

func (s *Service) Subscription(ctx context.Context) (*domain.Subscription, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}
	return s.repo.FindByOwner(ctx, s.db, ownerID)
}
