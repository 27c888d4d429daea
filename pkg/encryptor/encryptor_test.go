package encryptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	e := NewEncryptor("correct horse battery staple")

	sealed, err := e.EncryptString(`{"token":"a.b.c","expire":1}`)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "a.b.c")

	opened, err := e.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"token":"a.b.c","expire":1}`, opened)
}

func TestDecryptWithWrongSecret(t *testing.T) {
	sealed, err := NewEncryptor("one").EncryptString("payload")
	require.NoError(t, err)

	_, err = NewEncryptor("two").DecryptString(sealed)
	assert.Error(t, err)
}

func TestDecryptGarbage(t *testing.T) {
	_, err := NewEncryptor("one").DecryptString("%%%")
	assert.Error(t, err)
}
