package passkey

import (
	"encoding/base64"

	"github.com/go-webauthn/webauthn/webauthn"

	"budgetbook/internal/models"
)

// User adapts a budgetbook user and their passkeys to webauthn.User. The
// WebAuthn user handle is the user's UUID.
type User struct {
	user  *models.User
	creds []webauthn.Credential
}

// NewUser builds the adapter. Passkeys whose stored encoding is corrupt are
// left out.
func NewUser(user *models.User, passkeys ...models.Passkey) *User {
	creds := make([]webauthn.Credential, 0, len(passkeys))
	for _, pk := range passkeys {
		cred, err := Credential(pk)
		if err != nil {
			continue
		}
		creds = append(creds, cred)
	}
	return &User{user: user, creds: creds}
}

// Model returns the wrapped user.
func (u *User) Model() *models.User { return u.user }

func (u *User) WebAuthnID() []byte { return []byte(u.user.ID) }

func (u *User) WebAuthnName() string { return u.user.Email }

func (u *User) WebAuthnDisplayName() string {
	name := u.user.FirstName
	if u.user.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.user.LastName
	}
	if name == "" {
		return u.user.Email
	}
	return name
}

func (u *User) WebAuthnIcon() string { return "" }

func (u *User) WebAuthnCredentials() []webauthn.Credential { return u.creds }

// EncodeID returns the stored form of a raw credential ID.
func EncodeID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// FromCredential converts a verified credential into a passkey row for userID.
func FromCredential(userID string, cred *webauthn.Credential) *models.Passkey {
	return &models.Passkey{
		UserID:         userID,
		CredentialID:   EncodeID(cred.ID),
		PublicKey:      base64.RawURLEncoding.EncodeToString(cred.PublicKey),
		SignCount:      int64(cred.Authenticator.SignCount),
		BackupEligible: cred.Flags.BackupEligible,
		BackupState:    cred.Flags.BackupState,
	}
}

// Credential decodes a stored passkey back into a webauthn.Credential.
func Credential(pk models.Passkey) (webauthn.Credential, error) {
	id, err := base64.RawURLEncoding.DecodeString(pk.CredentialID)
	if err != nil {
		return webauthn.Credential{}, err
	}
	pub, err := base64.RawURLEncoding.DecodeString(pk.PublicKey)
	if err != nil {
		return webauthn.Credential{}, err
	}
	return webauthn.Credential{
		ID:        id,
		PublicKey: pub,
		Flags: webauthn.CredentialFlags{
			BackupEligible: pk.BackupEligible,
			BackupState:    pk.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			SignCount: uint32(pk.SignCount),
		},
	}, nil
}
