package services

import (
	"context"
	"errors"
	"io"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"gorm.io/gorm"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/logger"
	"budgetbook/internal/models"
	"budgetbook/internal/passkey"
)

// RelyingParty identifies this deployment to WebAuthn authenticators.
type RelyingParty struct {
	ID      string
	Name    string
	Origins []string
}

// passkeyService runs WebAuthn registration and login ceremonies. A user has
// at most one passkey.
type passkeyService struct {
	db       *gorm.DB
	web      *webauthn.WebAuthn
	sessions *passkey.SessionStore
}

// NewPasskeyService creates a new PasskeyServicer. It fails when the relying
// party settings are incomplete.
func NewPasskeyService(db *gorm.DB, rp RelyingParty, sessions *passkey.SessionStore) (PasskeyServicer, error) {
	web, err := webauthn.New(&webauthn.Config{
		RPID:          rp.ID,
		RPDisplayName: rp.Name,
		RPOrigins:     rp.Origins,
	})
	if err != nil {
		return nil, err
	}
	return &passkeyService{db: db, web: web, sessions: sessions}, nil
}

func (s *passkeyService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

func (s *passkeyService) findPasskey(ctx context.Context, column, value string) (*models.Passkey, error) {
	var pk models.Passkey
	if err := s.db.WithContext(ctx).Where(column+" = ?", value).First(&pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPasskeyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &pk, nil
}

func (s *passkeyService) requireNoPasskey(ctx context.Context, userID string) error {
	_, err := s.findPasskey(ctx, "user_id", userID)
	switch {
	case err == nil:
		return apperrors.ErrPasskeyExists
	case errors.Is(err, apperrors.ErrPasskeyNotFound):
		return nil
	default:
		return err
	}
}

// BeginRegistration starts a registration ceremony for a signed-in user.
// The credential is requested as discoverable so it can sign in without an
// email.
func (s *passkeyService) BeginRegistration(ctx context.Context, userID string) (*protocol.CredentialCreation, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNoPasskey(ctx, userID); err != nil {
		return nil, err
	}

	opts, session, err := s.web.BeginRegistration(passkey.NewUser(user),
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.sessions.SaveRegistration(userID, *session)
	return opts, nil
}

// FinishRegistration verifies the authenticator's attestation and stores the
// new passkey.
func (s *passkeyService) FinishRegistration(ctx context.Context, userID string, body io.Reader) (*models.Passkey, error) {
	session, ok := s.sessions.ConsumeRegistration(userID)
	if !ok {
		return nil, apperrors.ErrPasskeySession
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNoPasskey(ctx, userID); err != nil {
		return nil, err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPasskeyRejected, err)
	}
	cred, err := s.web.CreateCredential(passkey.NewUser(user), session, parsed)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPasskeyRejected, err)
	}
	return s.savePasskey(ctx, userID, cred)
}

func (s *passkeyService) savePasskey(ctx context.Context, userID string, cred *webauthn.Credential) (*models.Passkey, error) {
	pk := passkey.FromCredential(userID, cred)
	if err := s.db.WithContext(ctx).Create(pk).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrPasskeyExists
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pk, nil
}

// GetPasskey returns the user's passkey.
func (s *passkeyService) GetPasskey(ctx context.Context, userID string) (*models.Passkey, error) {
	return s.findPasskey(ctx, "user_id", userID)
}

// DeletePasskey removes the user's passkey so a new one can be registered.
func (s *passkeyService) DeletePasskey(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).Unscoped().Where("user_id = ?", userID).Delete(&models.Passkey{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrPasskeyNotFound
	}
	return nil
}

// BeginLogin starts a discoverable login ceremony. The returned session ID
// must be sent back with the assertion.
func (s *passkeyService) BeginLogin(ctx context.Context) (string, *protocol.CredentialAssertion, error) {
	opts, session, err := s.web.BeginDiscoverableLogin()
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	id, err := s.sessions.SaveLogin(*session)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return id, opts, nil
}

// FinishLogin verifies an assertion against the session's challenge and
// returns the user it belongs to.
func (s *passkeyService) FinishLogin(ctx context.Context, sessionID string, body io.Reader) (*models.User, error) {
	session, ok := s.sessions.ConsumeLogin(sessionID)
	if !ok {
		return nil, apperrors.ErrPasskeySession
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPasskeyRejected, err)
	}
	found, cred, err := s.web.ValidatePasskeyLogin(s.discoverUser(ctx), session, parsed)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPasskeyRejected, err)
	}

	account, ok := found.(*passkey.User)
	if !ok {
		return nil, apperrors.ErrPasskeyRejected
	}
	user := account.Model()
	if !user.IsActive {
		return nil, apperrors.ErrPasskeyRejected
	}

	credentialID := passkey.EncodeID(cred.ID)
	if err := s.db.WithContext(ctx).Model(&models.Passkey{}).
		Where("credential_id = ?", credentialID).
		Updates(map[string]interface{}{
			"sign_count":   int64(cred.Authenticator.SignCount),
			"backup_state": cred.Flags.BackupState,
		}).Error; err != nil {
		logger.Get().Warnw("failed to update passkey sign count", "error", err, "user_id", user.ID)
	}
	return user, nil
}

// discoverUser resolves the account behind an assertion, first by credential
// ID and then by user handle.
func (s *passkeyService) discoverUser(ctx context.Context) webauthn.DiscoverableUserHandler {
	return func(rawID, userHandle []byte) (webauthn.User, error) {
		var (
			pk  *models.Passkey
			err error
		)
		if len(rawID) > 0 {
			pk, err = s.findPasskey(ctx, "credential_id", passkey.EncodeID(rawID))
		}
		if pk == nil && len(userHandle) > 0 {
			pk, err = s.findPasskey(ctx, "user_id", string(userHandle))
		}
		if pk == nil {
			if err == nil {
				err = apperrors.ErrPasskeyNotFound
			}
			return nil, err
		}
		if len(userHandle) > 0 && string(userHandle) != pk.UserID {
			return nil, apperrors.ErrPasskeyRejected
		}

		user, err := s.loadUser(ctx, pk.UserID)
		if err != nil {
			return nil, err
		}
		return passkey.NewUser(user, *pk), nil
	}
}
