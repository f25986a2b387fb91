package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/goliatone/go-admin-auth/middleware/csrf"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionService runs signup, login, refresh and logout against the account
// store and the token service
type SessionService struct {
	repo         RepositoryManager
	tokens       TokenService
	hasher       Hasher
	csrfBytes    int
	now          Clock
	logger       Logger
	activitySink ActivitySink

	decoyOnce sync.Once
	decoyHash string
}

var _ Sessions = (*SessionService)(nil)

// NewSessionService returns a new SessionService
func NewSessionService(repo RepositoryManager, tokens TokenService, cfg Config) *SessionService {
	cfg = cfg.WithDefaults()
	return &SessionService{
		repo:         repo,
		tokens:       tokens,
		hasher:       NewBcryptHasher(cfg.BcryptCost),
		csrfBytes:    cfg.CSRFTokenBytes,
		now:          time.Now,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *SessionService) WithLogger(logger Logger) *SessionService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *SessionService) WithActivitySink(sink ActivitySink) *SessionService {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

func (s *SessionService) WithHasher(hasher Hasher) *SessionService {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

func (s *SessionService) WithClock(now Clock) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Signup creates an active admin account and issues its first token pair.
// A taken username or email fails with ErrConflict and writes nothing.
func (s *SessionService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	var account *AdminAccount
	var pair TokenPair

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := s.repo.Accounts().ExistsTx(ctx, tx, input.Username, input.Email)
		if err != nil {
			return storeFailure(err, "failed to check identity")
		}
		if exists {
			return ErrConflict
		}

		now := s.now()
		record := &AdminAccount{
			FullName:     input.FullName,
			Username:     input.Username,
			Email:        input.Email,
			PasswordHash: passwordHash,
			Role:         RoleAdmin,
			IsActive:     true,
			LastLoginAt:  &now,
		}

		if account, err = s.repo.Accounts().CreateTx(ctx, tx, record); err != nil {
			if IsConflict(err) {
				return ErrConflict
			}
			return storeFailure(err, "failed to create account")
		}

		pair, err = s.issueTokenPairTx(ctx, tx, account)
		return err
	})

	if err != nil {
		s.logger.Info("signup rejected", "username", input.Username, "error", err)
		return nil, normalizeSessionError(err, "signup transaction failed")
	}

	s.emit(ctx, ActivityEventSignup, account.ID.String(), input.Username, "")

	return s.result(account, pair)
}

// Login verifies the password of the account matched by username or email.
// Unknown identifiers, wrong passwords and inactive accounts all fail with
// the same ErrUnauthorized.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	var account *AdminAccount
	var pair TokenPair
	var reason string

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = s.repo.Accounts().GetByIdentifierTx(ctx, tx, identifier)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				s.hasher.Verify(password, s.decoy())
				reason = "unknown identifier"
				return ErrUnauthorized
			}
			return storeFailure(err, "failed to load account")
		}

		if !s.hasher.Verify(password, account.PasswordHash) {
			reason = "password mismatch"
			return ErrUnauthorized
		}

		if !account.IsActive {
			reason = "account inactive"
			return ErrUnauthorized
		}

		now := s.now()
		if err := s.repo.Accounts().TrackSuccessfulLoginTx(ctx, tx, account.ID, now); err != nil {
			return storeFailure(err, "failed to track login")
		}
		account.LastLoginAt = &now

		pair, err = s.issueTokenPairTx(ctx, tx, account)
		return err
	})

	if err != nil {
		userID := ""
		if account != nil {
			userID = account.ID.String()
		}
		s.logger.Info("login rejected", "identifier", identifier, "reason", reason)
		s.emit(ctx, ActivityEventLoginFailure, userID, identifier, reason)
		return nil, normalizeSessionError(err, "login transaction failed")
	}

	s.emit(ctx, ActivityEventLoginSuccess, account.ID.String(), identifier, "")

	return s.result(account, pair)
}

// Refresh redeems a refresh credential once. The stored fingerprint is
// swapped only if it still matches the presented token, so a second
// redemption of the same token, concurrent or not, fails.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	account, reason, err := s.redeem(ctx, refreshToken)
	if err != nil {
		s.logger.Info("refresh rejected", "reason", reason)
		s.emit(ctx, ActivityEventRefreshFailure, "", "", reason)
		return nil, normalizeSessionError(err, "refresh transaction failed")
	}

	s.emit(ctx, ActivityEventRefreshSuccess, account.account.ID.String(), account.account.Username, "")

	return s.result(account.account, account.pair)
}

type redemption struct {
	account *AdminAccount
	pair    TokenPair
}

func (s *SessionService) redeem(ctx context.Context, refreshToken string) (*redemption, string, error) {
	if refreshToken == "" {
		return nil, "missing token", ErrUnauthorized
	}

	claims, err := s.tokens.Verify(TokenKindRefresh, refreshToken)
	if err != nil {
		return nil, "verification failed", ErrUnauthorized
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, "invalid subject", ErrUnauthorized
	}

	out := &redemption{}
	var reason string

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := s.repo.Accounts().GetByIDTx(ctx, tx, id)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				reason = "unknown account"
				return ErrUnauthorized
			}
			return storeFailure(err, "failed to load account")
		}

		if !account.HasRefreshFingerprint() {
			reason = "no active session"
			return ErrUnauthorized
		}

		if !account.IsActive {
			reason = "account inactive"
			return ErrUnauthorized
		}

		previous := *account.RefreshTokenHash
		if !s.hasher.Verify(fingerprintInput(refreshToken), previous) {
			reason = "fingerprint mismatch"
			return ErrUnauthorized
		}

		if !s.now().Before(*account.RefreshTokenExpiresAt) {
			reason = "refresh expired"
			return ErrUnauthorized
		}

		pair, fingerprint, err := s.mintTokenPair(account)
		if err != nil {
			return err
		}

		swapped, err := s.repo.Accounts().RotateRefreshFingerprintTx(ctx, tx, account.ID, previous, fingerprint, pair.RefreshExpiresAt)
		if err != nil {
			return storeFailure(err, "failed to rotate refresh fingerprint")
		}
		if !swapped {
			reason = "already redeemed"
			return ErrUnauthorized
		}

		account.RefreshTokenHash = &fingerprint
		account.RefreshTokenExpiresAt = &pair.RefreshExpiresAt
		out.account = account
		out.pair = pair
		return nil
	})

	if err != nil {
		return nil, reason, err
	}
	return out, "", nil
}

// Logout revokes the refresh credential of the account the token belongs to.
// It never fails: anything that does not verify means nothing to revoke.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	claims, err := s.tokens.Verify(TokenKindRefresh, refreshToken)
	if err != nil {
		s.logger.Debug("logout with unverifiable token, nothing to revoke")
		return
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return
	}

	if err := s.repo.Accounts().ClearRefreshFingerprint(ctx, id); err != nil {
		s.logger.Warn("logout failed to clear refresh fingerprint", "user_id", id.String(), "error", err)
		return
	}

	s.emit(ctx, ActivityEventLogout, id.String(), claims.Username, "")
}

// issueTokenPairTx mints a pair and overwrites the stored fingerprint in the
// same transaction, superseding any prior pair.
func (s *SessionService) issueTokenPairTx(ctx context.Context, tx bun.IDB, account *AdminAccount) (TokenPair, error) {
	pair, fingerprint, err := s.mintTokenPair(account)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.repo.Accounts().StoreRefreshFingerprintTx(ctx, tx, account.ID, fingerprint, pair.RefreshExpiresAt); err != nil {
		return TokenPair{}, storeFailure(err, "failed to store refresh fingerprint")
	}

	account.RefreshTokenHash = &fingerprint
	account.RefreshTokenExpiresAt = &pair.RefreshExpiresAt

	return pair, nil
}

func (s *SessionService) mintTokenPair(account *AdminAccount) (TokenPair, string, error) {
	access, accessExp, err := s.tokens.Issue(TokenKindAccess, account)
	if err != nil {
		return TokenPair{}, "", err
	}

	refresh, refreshExp, err := s.tokens.Issue(TokenKindRefresh, account)
	if err != nil {
		return TokenPair{}, "", err
	}

	fingerprint, err := s.hasher.Hash(fingerprintInput(refresh))
	if err != nil {
		return TokenPair{}, "", err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, fingerprint, nil
}

func (s *SessionService) result(account *AdminAccount, pair TokenPair) (*AuthResult, error) {
	token, err := csrf.GenerateToken(s.csrfBytes)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate CSRF token")
	}

	return &AuthResult{
		User:      account.Profile(),
		Tokens:    pair,
		CSRFToken: token,
	}, nil
}

// decoy returns a throwaway digest so unknown identifiers cost one hash
// comparison like known ones.
func (s *SessionService) decoy() string {
	s.decoyOnce.Do(func() {
		s.decoyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.decoyHash
}

func (s *SessionService) emit(ctx context.Context, eventType ActivityEventType, userID, identifier, reason string) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Identifier: identifier,
		Reason:     reason,
		OccurredAt: s.now(),
	}

	if err := normalizeActivitySink(s.activitySink).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}

// fingerprintInput reduces a refresh token to a fixed 64 byte value before
// bcrypt, which only reads the first 72 bytes of its input.
func fingerprintInput(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeSessionError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if IsUnauthorized(err) {
		return ErrUnauthorized
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}

	return storeFailure(err, msg)
}
