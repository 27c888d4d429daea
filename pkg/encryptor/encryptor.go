// Package encryptor seals the token record before it is written to the local
// database.
package encryptor

import (
	"encoding/base64"

	"github.com/gtank/cryptopasta"
	"github.com/pkg/errors"
)

const keyTag = "xmum-wiki/token-record"

// Encryptor implements storage.Encryptor. Records are sealed with AES-256-GCM
// and stored as base64 text.
type Encryptor struct {
	secret *[32]byte
}

// NewEncryptor derives the key from the storage secret, which may be a
// passphrase of any length. The same secret must be used to read back records.
func NewEncryptor(secretString string) *Encryptor {
	secret := &[32]byte{}
	copy(secret[:], cryptopasta.Hash(keyTag, []byte(secretString)))
	return &Encryptor{secret: secret}
}

// EncryptString seals a serialized record.
func (e *Encryptor) EncryptString(plaintext string) (string, error) {
	encryptedBytes, err := cryptopasta.Encrypt([]byte(plaintext), e.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to encrypt string")
	}
	b64 := base64.StdEncoding.EncodeToString(encryptedBytes)
	return b64, nil
}

// DecryptString fails when the record was sealed under another secret or was
// tampered with.
func (e *Encryptor) DecryptString(ciphertext string) (string, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode string")
	}
	decryptedBytes, err := cryptopasta.Decrypt(decodedBytes, e.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to decrypt string")
	}
	return string(decryptedBytes), nil
}
