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
	"io"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
)

// EncryptedContextKey holds the ciphertext inside the envelope session.
const EncryptedContextKey = "__encrypted__"

// ErrNotEncrypted is returned when a stored session carries no envelope.
var ErrNotEncrypted = errors.New("session is missing encrypted data envelope")

// EncryptionConfig holds the AES-256 keys of the store.
type EncryptionConfig struct {
	// ActiveKey seals every saved session. Must be 32 bytes.
	ActiveKey []byte

	// FallbackKeys are tried in order when ActiveKey cannot open a session,
	// so keys can be rotated without migrating the store.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next ports.SessionStore
	// keys[0] is the active key.
	keys []cipher.AEAD
}

// NewEncryptionMiddleware seals whole sessions with AES-GCM. The stored session
// is an envelope keeping only Version and UpdatedAt in clear. The ciphertext is
// bound to the session id, so an envelope copied under another id does not open.
// It panics on a malformed key.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	keys := make([]cipher.AEAD, 0, 1+len(config.FallbackKeys))
	for _, k := range append([][]byte{config.ActiveKey}, config.FallbackKeys...) {
		aead, err := newAEAD(k)
		if err != nil {
			panic(fmt.Sprintf("invalid encryption key: %v", err))
		}
		keys = append(keys, aead)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{next: next, keys: keys}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	plain, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	sealed, err := seal(m.keys[0], plain, []byte(sessionID))
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	envelope := domain.NewSession(session.ID)
	envelope.Version = session.Version
	envelope.UpdatedAt = session.UpdatedAt
	envelope.Contexts[EncryptedContextKey] = base64.StdEncoding.EncodeToString(sealed)
	return m.next.Save(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A plain session is never accepted once encryption is configured.
	encoded, ok := envelope.Contexts[EncryptedContextKey].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotEncrypted, sessionID)
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plain, err := m.open(sealed, []byte(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session %s: %w", sessionID, err)
	}

	var session domain.Session
	if err := json.Unmarshal(plain, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted session: %w", err)
	}
	if session.Contexts == nil {
		session.Contexts = make(map[string]any)
	}
	return &session, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) open(sealed, aad []byte) ([]byte, error) {
	for _, aead := range m.keys {
		if plain, err := unseal(aead, sealed, aad); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("no key opens the session")
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal returns nonce || ciphertext.
func seal(aead cipher.AEAD, plain, aad []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, aad), nil
}

func unseal(aead cipher.AEAD, sealed, aad []byte) ([]byte, error) {
	n := aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("ciphertext too short")
	}
	return aead.Open(nil, sealed[:n], sealed[n:], aad)
}
