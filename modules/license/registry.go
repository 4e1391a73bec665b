package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samosalabs/licenseserver/modules/auth"
	"github.com/samosalabs/licenseserver/modules/billing"
	"github.com/samosalabs/licenseserver/pkg/email"
)

// maxKeyAttempts bounds the collision retry loop on key generation.
// With 48 bits of entropy a single retry is already vanishingly rare.
const maxKeyAttempts = 5

// SubscriptionSource resolves a user's subscription. The billing
// service satisfies this; it applies trial expiry before returning.
type SubscriptionSource interface {
	GetForUser(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error)
}

// UserSource resolves key owners. The auth service satisfies this; it
// backs the owner summary on successful verdicts and the revocation
// notice.
type UserSource interface {
	GetUser(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

// Registry implements license key issuance and validation.
type Registry struct {
	store  Store
	subs   SubscriptionSource
	users  UserSource
	sender email.Sender
	log    *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithEmailSender enables the key delivery and revocation emails.
func WithEmailSender(sender email.Sender) Option {
	return func(r *Registry) { r.sender = sender }
}

// WithUserSource enables owner summaries on verdicts and owner lookup
// for notification emails.
func WithUserSource(users UserSource) Option {
	return func(r *Registry) { r.users = users }
}

// NewRegistry creates the license registry. Panics on nil store or
// subscription source to fail fast during initialization.
func NewRegistry(store Store, subs SubscriptionSource, opts ...Option) *Registry {
	if store == nil {
		panic("license: store is required")
	}
	if subs == nil {
		panic("license: subscription source is required")
	}
	r := &Registry{
		store: store,
		subs:  subs,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Issue creates the owner's license key for the given number of seats.
// Zero seats means the subscription's full seat count; an explicit
// count must stay within what the subscription pays for. The owner
// must hold a usable subscription and no key in any status; the
// one-key-per-owner rule is backed by a unique constraint in the
// store, so concurrent requests cannot slip a second key through. When
// an email address is given the key is delivered by mail on a
// best-effort basis.
func (r *Registry) Issue(ctx context.Context, ownerID uuid.UUID, seats int, emailAddr string) (*Key, error) {
	if seats < 0 {
		return nil, ErrInvalidSeatCount
	}

	sub, err := r.subs.GetForUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return nil, ErrSubscriptionNotUsable
		}
		return nil, err
	}
	if !sub.Usable(time.Now()) {
		return nil, ErrSubscriptionNotUsable
	}

	if seats == 0 {
		seats = sub.SeatCount
	}
	if seats < 1 || seats > sub.SeatCount {
		return nil, ErrInvalidSeatCount
	}

	var key *Key
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		raw, err := GenerateKey()
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		candidate := &Key{
			ID:             uuid.New(),
			Key:            raw,
			OwnerID:        ownerID,
			SubscriptionID: sub.ID,
			SeatCount:      seats,
			Status:         StatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		err = r.store.Create(ctx, candidate)
		if err == nil {
			key = candidate
			break
		}
		if errors.Is(err, ErrDuplicateKey) {
			r.log.WarnContext(ctx, "license key collision, regenerating", "attempt", attempt+1)
			continue
		}
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: exhausted %d attempts", ErrKeyGeneration, maxKeyAttempts)
	}

	r.log.InfoContext(ctx, "license key issued",
		"key_id", key.ID, "owner_id", ownerID, "subscription_id", sub.ID)

	if r.sender != nil && emailAddr != "" {
		if err := r.sender.Send(ctx, keyIssuedEmail(emailAddr, key.Key)); err != nil {
			r.log.ErrorContext(ctx, "license key email failed",
				"key_id", key.ID, "error", err)
		}
	}

	return key, nil
}

// Verdict messages shown to product installations. Failures share one
// message so callers cannot probe which keys exist.
const (
	msgKeyInvalid   = "License key not found or inactive"
	msgTrialExpired = "Trial period has expired"
)

// Validate checks a raw key as presented by a product installation.
// The verdict never distinguishes unknown, revoked, and expired keys;
// callers learn only that the key does not validate. An expired trial
// is the one exception, flagged so installations can point the owner
// at the upgrade page. Usage tracking is best effort and never flips
// the verdict.
func (r *Registry) Validate(ctx context.Context, raw string) (*Verdict, error) {
	raw = NormalizeKey(raw)
	if !ValidKeyFormat(raw) {
		return &Verdict{Valid: false, Message: msgKeyInvalid}, nil
	}

	key, err := r.store.GetByKey(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return &Verdict{Valid: false, Message: msgKeyInvalid}, nil
		}
		return nil, err
	}

	// Revoked and expired keys fall into the non-disclosing verdict
	// before any cross-entity checks; only active keys can surface the
	// trial-expired distinction.
	if key.Status != StatusActive {
		return &Verdict{Valid: false, Message: msgKeyInvalid}, nil
	}

	sub, err := r.subs.GetForUser(ctx, key.OwnerID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return &Verdict{Valid: false, Message: msgKeyInvalid}, nil
		}
		return nil, err
	}

	// A trial that lapsed expires its key on first contact. The
	// distinct verdict lets installations prompt for an upgrade.
	if trialLapsed(sub) {
		if err := r.store.ExpireBySubscription(ctx, key.SubscriptionID); err != nil {
			r.log.ErrorContext(ctx, "expiring keys of lapsed trial failed",
				"subscription_id", key.SubscriptionID, "error", err)
		}
		return &Verdict{Valid: false, TrialExpired: true, Message: msgTrialExpired}, nil
	}

	if !sub.Usable(time.Now()) {
		return &Verdict{Valid: false, Message: msgKeyInvalid}, nil
	}

	usage := key.UsageCount
	if err := r.store.RecordUsage(ctx, key.ID); err != nil {
		r.log.WarnContext(ctx, "license usage tracking failed",
			"key_id", key.ID, "error", err)
	} else {
		usage++
	}

	verdict := &Verdict{
		Valid: true,
		License: &KeySummary{
			Key:        key.Key,
			Status:     key.Status,
			SeatCount:  key.SeatCount,
			UsageCount: usage,
			LastUsedAt: key.LastUsedAt,
		},
		Subscription: &SubscriptionSummary{
			Status:    string(sub.Status),
			SeatCount: sub.SeatCount,
			Interval:  string(sub.Interval),
		},
	}
	if r.users != nil {
		if owner, err := r.users.GetUser(ctx, key.OwnerID); err == nil {
			verdict.User = &OwnerSummary{
				Email: owner.Email,
				Name:  strings.TrimSpace(owner.FirstName + " " + owner.LastName),
			}
		}
	}

	return verdict, nil
}

// Revoke disables an active key. Revoking a key that is already
// revoked is a no-op; expired keys cannot be revoked. The owner is
// notified by mail on a best-effort basis.
func (r *Registry) Revoke(ctx context.Context, id uuid.UUID) (*Key, error) {
	key, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key.Status == StatusRevoked {
		return key, nil
	}
	if key.Status != StatusActive {
		return nil, ErrKeyNotActive
	}

	if err := r.store.UpdateStatus(ctx, id, StatusRevoked); err != nil {
		return nil, err
	}
	key.Status = StatusRevoked
	key.UpdatedAt = time.Now().UTC()

	r.log.InfoContext(ctx, "license key revoked", "key_id", id, "owner_id", key.OwnerID)

	if r.sender != nil && r.users != nil {
		if owner, err := r.users.GetUser(ctx, key.OwnerID); err == nil {
			if err := r.sender.Send(ctx, keyRevokedEmail(owner.Email, key.Key)); err != nil {
				r.log.ErrorContext(ctx, "license revocation email failed",
					"key_id", key.ID, "error", err)
			}
		}
	}

	return key, nil
}

// Reactivate restores a revoked key to active. Expired keys stay
// expired, and the owning subscription must still entitle a working
// key.
func (r *Registry) Reactivate(ctx context.Context, id uuid.UUID) (*Key, error) {
	key, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key.Status != StatusRevoked {
		return nil, ErrKeyNotRevoked
	}

	sub, err := r.subs.GetForUser(ctx, key.OwnerID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return nil, ErrSubscriptionNotUsable
		}
		return nil, err
	}
	if !sub.Usable(time.Now()) {
		return nil, ErrSubscriptionNotUsable
	}

	if err := r.store.UpdateStatus(ctx, id, StatusActive); err != nil {
		return nil, err
	}
	key.Status = StatusActive
	key.UpdatedAt = time.Now().UTC()

	r.log.InfoContext(ctx, "license key reactivated", "key_id", id, "owner_id", key.OwnerID)

	return key, nil
}

// ListForOwner returns the owner's keys, newest first.
func (r *Registry) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*Key, error) {
	return r.store.ListByOwner(ctx, ownerID)
}

// ListAll returns every issued key, newest first.
func (r *Registry) ListAll(ctx context.Context) ([]*Key, error) {
	return r.store.ListAll(ctx)
}

// trialLapsed reports whether the subscription is an expired trial.
// Trials never have a provider subscription attached.
func trialLapsed(sub *billing.Subscription) bool {
	return sub.Status == billing.StatusExpired && sub.ProviderSubID == ""
}

func keyRevokedEmail(to, key string) email.SendParams {
	return email.SendParams{
		To:      to,
		Subject: "Your QualityBytes license key was revoked",
		Tag:     "license-key-revoked",
		BodyHTML: fmt.Sprintf(
			`<p>Your QualityBytes license key <strong>%s</strong> has been revoked.</p>`+
				`<p>If you believe this is a mistake, contact support.</p>`,
			MaskKey(key)),
	}
}

func keyIssuedEmail(to, key string) email.SendParams {
	return email.SendParams{
		To:      to,
		Subject: "Your QualityBytes license key",
		Tag:     "license-key-issued",
		BodyHTML: fmt.Sprintf(
			`<p>Your QualityBytes license key is ready:</p>`+
				`<p><strong>%s</strong></p>`+
				`<p>Enter it in your QualityBytes installation under Settings &rarr; License.</p>`,
			key),
	}
}
