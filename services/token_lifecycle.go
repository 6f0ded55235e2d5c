package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/credlink/tokenvault/domain"
	"github.com/credlink/tokenvault/internal/federation"
	"github.com/credlink/tokenvault/log"
)

// errMalformedTokenPayload marks a refresh response that arrived but
// could not be decoded. Like a transport fault it flags the record
// failed and leaves the stored tokens untouched.
var errMalformedTokenPayload = errors.New("malformed token payload")

// TokenLifecycleService orchestrates the credential lifecycle for
// federated identities: completing authentication, locating records
// across legacy identifiers, detecting orphans, refreshing expired
// tokens and upserting the results.
//
// The service is sequential; it introduces no parallelism of its own.
// Callers are expected to serialize work per user, so the
// check-then-act upsert runs last-writer-wins. The storage layer's
// unique index backstops the one-record-per-pair invariant.
type TokenLifecycleService struct {
	tokens    domain.TokenRepository
	legacy    domain.LegacyIdentityRepository
	registry  ProviderRegistry
	providers ProviderConfigSource
	logger    log.Logger

	now func() time.Time
}

func NewTokenLifecycleService(
	tokens domain.TokenRepository,
	legacy domain.LegacyIdentityRepository,
	registry ProviderRegistry,
	providers ProviderConfigSource,
	logger log.Logger,
) *TokenLifecycleService {
	return &TokenLifecycleService{
		tokens:    tokens,
		legacy:    legacy,
		registry:  registry,
		providers: providers,
		logger:    logger,
		now:       time.Now,
	}
}

// Lookup finds the token record for (userKey, providerID). When the
// direct key misses, the legacy identifier table is scanned in store
// order and the first identifier carrying the provider id as a literal,
// case-sensitive prefix is retried as the key. First match wins; a miss
// on that retry is final.
func (s *TokenLifecycleService) Lookup(ctx context.Context, userKey, providerID string) (*domain.TokenRecord, error) {
	record, err := s.find(ctx, userKey, providerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, domain.ErrTokenNotFound) {
		return nil, err
	}

	externalIDs, err := s.legacy.ListExternalIDs(ctx, userKey)
	if err != nil {
		return nil, &domain.StoreError{Op: "list legacy identifiers", Err: err}
	}
	for _, externalID := range externalIDs {
		if !strings.HasPrefix(externalID, providerID) {
			continue
		}
		record, err := s.find(ctx, externalID, providerID)
		if err == nil {
			s.logger.Debug(ctx, "token record found via legacy identifier", map[string]interface{}{
				"user_key":    userKey,
				"external_id": externalID,
				"provider_id": providerID,
			})
		}
		return record, err
	}
	return nil, domain.ErrTokenNotFound
}

// find performs a direct store lookup, passing sentinels through and
// wrapping anything else as a store fault.
func (s *TokenLifecycleService) find(ctx context.Context, key, providerID string) (*domain.TokenRecord, error) {
	record, err := s.tokens.Find(ctx, key, providerID)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) || errors.Is(err, domain.ErrAmbiguousTokens) {
			return nil, err
		}
		return nil, &domain.StoreError{Op: "find tokens", Err: err}
	}
	return record, nil
}

// Authenticate completes a provider handshake and stores the resulting
// token pair under the key derived from the returned profile. No record
// is written before the handshake succeeds. Returns the derived user key.
func (s *TokenLifecycleService) Authenticate(ctx context.Context, session IdentitySession, providerType, providerID string) (string, error) {
	if err := session.Authenticate(ctx); err != nil {
		return "", fmt.Errorf("provider handshake: %w", err)
	}
	profile, err := session.UserProfile(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch user profile: %w", err)
	}
	payload, err := session.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("retrieve token payload: %w", err)
	}

	userKey := DeriveUserKey(profile.Identifier, providerID)
	if err := s.SaveTokens(ctx, payload, userKey, providerType, providerID); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "federated authentication completed", map[string]interface{}{
		"user_key":      userKey,
		"provider_type": providerType,
		"provider_id":   providerID,
	})
	return userKey, nil
}

// SaveTokens upserts a token payload for (userKey, providerID). An
// existing record (found directly or through a legacy identifier) is
// mutated in place: tokens and expiry replaced, provider fields updated,
// failure flag cleared. Otherwise a fresh record is inserted.
func (s *TokenLifecycleService) SaveTokens(ctx context.Context, payload *domain.TokenPayload, userKey, providerType, providerID string) error {
	now := s.now()

	record, err := s.Lookup(ctx, userKey, providerID)
	switch {
	case err == nil:
		record.AccessToken = payload.AccessToken
		record.RefreshToken = payload.RefreshToken
		record.ExpiresAt = payload.Expiry(now)
		record.ProviderType = providerType
		record.ProviderID = providerID
		record.Failed = false
		if err := s.tokens.Update(ctx, record); err != nil {
			return &domain.OperationError{Op: "update tokens", Err: err}
		}
		return nil

	case errors.Is(err, domain.ErrTokenNotFound):
		record = &domain.TokenRecord{
			UserKey:      userKey,
			ProviderType: providerType,
			ProviderID:   providerID,
			AccessToken:  payload.AccessToken,
			RefreshToken: payload.RefreshToken,
			ExpiresAt:    payload.Expiry(now),
			Failed:       false,
		}
		if err := s.tokens.Insert(ctx, record); err != nil {
			return &domain.OperationError{Op: "insert tokens", Err: err}
		}
		return nil

	default:
		return err
	}
}

// ListUserTokens returns every token record stored for a user key.
func (s *TokenLifecycleService) ListUserTokens(ctx context.Context, userKey string) ([]*domain.TokenRecord, error) {
	records, err := s.tokens.ListByUserKey(ctx, userKey)
	if err != nil {
		return nil, &domain.StoreError{Op: "list tokens by user", Err: err}
	}
	return records, nil
}

// DeleteUserToken unlinks a provider from a user by deleting the token
// record, resolving legacy identifiers the same way Lookup does.
func (s *TokenLifecycleService) DeleteUserToken(ctx context.Context, userKey, providerID string) error {
	record, err := s.Lookup(ctx, userKey, providerID)
	if err != nil {
		return err
	}
	if err := s.tokens.Delete(ctx, record); err != nil {
		return &domain.OperationError{Op: "delete tokens", Err: err}
	}
	return nil
}

// RefreshUserTokens refreshes a single user's tokens for one provider.
// A user who never linked the provider is a normal case, not an error.
// Refresh failures surface to the caller (unlike the bulk pass, which
// degrades per record).
func (s *TokenLifecycleService) RefreshUserTokens(ctx context.Context, userKey, providerID string) error {
	record, err := s.Lookup(ctx, userKey, providerID)
	if errors.Is(err, domain.ErrTokenNotFound) {
		s.logger.Debug(ctx, "no linked tokens to refresh", map[string]interface{}{
			"user_key":    userKey,
			"provider_id": providerID,
		})
		return nil
	}
	if err != nil {
		return err
	}
	return s.refreshRecord(ctx, record)
}

// RefreshAllTokens walks every stored record in store order and refreshes
// the expired ones. Records flagged failed are skipped when skipFailed is
// set. Orphaned records (provider no longer active) are deleted
// immediately and never refreshed; a deletion failure is fatal to the run
// so persistence corruption is not masked. Transport failures and
// undecodable refresh responses mark the record failed and the pass
// continues; adapter construction failures are logged and skipped.
func (s *TokenLifecycleService) RefreshAllTokens(ctx context.Context, skipFailed bool) error {
	records, err := s.tokens.FindAll(ctx)
	if err != nil {
		return &domain.StoreError{Op: "list token records", Err: err}
	}
	if len(records) == 0 {
		s.logger.Info(ctx, "no token records to refresh")
		return nil
	}

	now := s.now()
	for _, record := range records {
		if skipFailed && record.Failed {
			s.logger.Debug(ctx, "skipping previously failed record", map[string]interface{}{
				"user_key":    record.UserKey,
				"provider_id": record.ProviderID,
			})
			continue
		}

		if s.isOrphaned(record) {
			s.logger.Warn(ctx, "deleting orphaned token record", map[string]interface{}{
				"user_key":      record.UserKey,
				"provider_type": record.ProviderType,
				"provider_id":   record.ProviderID,
			})
			if err := s.tokens.Delete(ctx, record); err != nil {
				return &domain.OperationError{Op: "delete orphaned tokens", Err: err}
			}
			continue
		}

		if !record.Expired(now) {
			continue
		}

		if err := s.refreshRecord(ctx, record); err != nil {
			switch {
			case federation.IsTransportError(err) || errors.Is(err, errMalformedTokenPayload):
				// Record already flagged failed; eligible for retry
				// on the next pass.
				s.logger.Warn(ctx, "token refresh failed, record marked for retry", map[string]interface{}{
					"user_key":    record.UserKey,
					"provider_id": record.ProviderID,
					"error":       err.Error(),
				})
				continue
			case errors.Is(err, federation.ErrProviderNotFound) || errors.Is(err, federation.ErrProviderMisconfigured):
				s.logger.Error(ctx, "cannot build provider adapter for record, skipping", err, map[string]interface{}{
					"user_key":      record.UserKey,
					"provider_type": record.ProviderType,
					"provider_id":   record.ProviderID,
				})
				continue
			default:
				return err
			}
		}
	}
	return nil
}

// refreshRecord exchanges the stored refresh token for a new pair and
// persists the outcome. On a transport failure or an undecodable
// response the record is flagged failed (tokens untouched) and the
// error is returned so callers can classify it.
func (s *TokenLifecycleService) refreshRecord(ctx context.Context, record *domain.TokenRecord) error {
	provider, err := s.registry.Provider(ctx, record.ProviderType, record.ProviderID)
	if err != nil {
		return fmt.Errorf("resolve provider %s/%s: %w", record.ProviderType, record.ProviderID, err)
	}
	cfg, err := s.providers.ClientConfig(record.ProviderType, record.ProviderID)
	if err != nil {
		return fmt.Errorf("client config for %s/%s: %w", record.ProviderType, record.ProviderID, err)
	}

	raw, err := provider.RefreshToken(ctx, federation.RefreshParams{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		RefreshToken: record.RefreshToken,
	})
	if err != nil {
		if federation.IsTransportError(err) {
			record.Failed = true
			if uerr := s.tokens.Update(ctx, record); uerr != nil {
				return &domain.OperationError{Op: "mark tokens failed", Err: uerr}
			}
			return err
		}
		return err
	}

	var payload domain.TokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		record.Failed = true
		if uerr := s.tokens.Update(ctx, record); uerr != nil {
			return &domain.OperationError{Op: "mark tokens failed", Err: uerr}
		}
		return fmt.Errorf("decode token payload from %s: %w: %w", record.ProviderID, errMalformedTokenPayload, err)
	}
	return s.SaveTokens(ctx, &payload, record.UserKey, record.ProviderType, record.ProviderID)
}

// isOrphaned reports whether the record's provider has been deactivated
// or removed from configuration since the tokens were issued.
func (s *TokenLifecycleService) isOrphaned(record *domain.TokenRecord) bool {
	return !s.providers.IsProviderActive(record.ProviderType, record.ProviderID)
}
