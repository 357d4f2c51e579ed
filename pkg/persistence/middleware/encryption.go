package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
)

// envelopeKey holds the ciphertext inside the envelope session.
const envelopeKey = "__encrypted__"

var errNoKey = errors.New("no key could open the session")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new data. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key fails,
	// which allows key rotation without downtime.
	FallbackKeys [][]byte
}

// keyring holds one AEAD per key; the first one seals.
type keyring []cipher.AEAD

func newKeyring(cfg EncryptionConfig) (keyring, error) {
	ring := make(keyring, 0, 1+len(cfg.FallbackKeys))
	for i, key := range append([][]byte{cfg.ActiveKey}, cfg.FallbackKeys...) {
		if len(key) != 32 {
			return nil, fmt.Errorf("key %d is %d bytes, want 32 (AES-256)", i, len(key))
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		ring = append(ring, aead)
	}
	return ring, nil
}

// seal encrypts plain and binds it to the session id, so an envelope copied
// under another id does not open.
func (k keyring) seal(plain []byte, sessionID string) ([]byte, error) {
	aead := k[0]
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, []byte(sessionID)), nil
}

func (k keyring) open(sealed []byte, sessionID string) ([]byte, error) {
	for _, aead := range k {
		n := aead.NonceSize()
		if len(sealed) < n {
			continue
		}
		if plain, err := aead.Open(nil, sealed[:n], sealed[n:], []byte(sessionID)); err == nil {
			return plain, nil
		}
	}
	return nil, errNoKey
}

type encryptionMiddleware struct {
	ports.SessionStore
	keys keyring
}

// NewEncryptionMiddleware creates a middleware that seals whole sessions with
// AES-GCM. The stored envelope exposes only the turn and address. It panics
// when a key is not 32 bytes.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	keys, err := newKeyring(config)
	if err != nil {
		panic(err)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{SessionStore: next, keys: keys}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encrypt session %q: %w", sessionID, err)
	}
	sealed, err := m.keys.seal(raw, sessionID)
	if err != nil {
		return fmt.Errorf("encrypt session %q: %w", sessionID, err)
	}

	envelope := domain.NewSession(session.ID)
	envelope.Turn = session.Turn
	envelope.Address = session.Address
	envelope.State[envelopeKey] = domain.Str(base64.StdEncoding.EncodeToString(sealed))
	return m.SessionStore.Save(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	envelope, err := m.SessionStore.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A plain session under an encrypting store fails closed.
	field, ok := envelope.State[envelopeKey]
	if !ok || field.Kind() != domain.KindString {
		return nil, fmt.Errorf("decrypt session %q: no encrypted envelope", sessionID)
	}
	sealed, err := base64.StdEncoding.DecodeString(field.String())
	if err != nil {
		return nil, fmt.Errorf("decrypt session %q: %w", sessionID, err)
	}
	raw, err := m.keys.open(sealed, sessionID)
	if err != nil {
		return nil, fmt.Errorf("decrypt session %q: %w", sessionID, err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decrypt session %q: %w", sessionID, err)
	}
	session.Normalize()
	return &session, nil
}
