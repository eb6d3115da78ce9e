package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/shopverse/internal/crypto/clientcrypto"
	"github.com/and161185/shopverse/internal/errs"
)

// exercise checks the behaviour every backend must share.
func exercise(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "shopverseToken")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, s.Set(ctx, "shopverseToken", "t1"))
	require.NoError(t, s.Set(ctx, "sellerToken", "t2"))
	v, err := s.Get(ctx, "shopverseToken")
	require.NoError(t, err)
	require.Equal(t, "t1", v)

	require.NoError(t, s.Set(ctx, "shopverseToken", "t3"))
	v, err = s.Get(ctx, "shopverseToken")
	require.NoError(t, err)
	require.Equal(t, "t3", v)

	require.NoError(t, s.Remove(ctx, "shopverseToken"))
	require.NoError(t, s.Remove(ctx, "shopverseToken"), "removing a missing key is not an error")
	_, err = s.Get(ctx, "shopverseToken")
	require.ErrorIs(t, err, errs.ErrNotFound)

	v, err = s.Get(ctx, "sellerToken")
	require.NoError(t, err)
	require.Equal(t, "t2", v)
}

func TestMemory_Contract(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	exercise(t, m)
	require.ElementsMatch(t, []string{"sellerToken"}, m.Keys())
}

func TestFile_Contract(t *testing.T) {
	t.Parallel()
	exercise(t, NewFile(filepath.Join(t.TempDir(), "cfg")))
}

func TestFile_SurvivesReopenAndIsPrivate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, NewFile(dir).Set(ctx, "shopverseCart", `[{"quantity":1}]`))

	reopened := NewFile(dir)
	v, err := reopened.Get(ctx, "shopverseCart")
	require.NoError(t, err)
	require.Equal(t, `[{"quantity":1}]`, v)

	st, err := os.Stat(reopened.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())
}

func TestFile_CorruptDocument(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o600))
	_, err := NewFile(dir).Get(context.Background(), "k")
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestSealed_ContractAndCiphertextAtRest(t *testing.T) {
	t.Parallel()
	key, err := clientcrypto.Rand(clientcrypto.DeviceKeyLen)
	require.NoError(t, err)
	inner := NewMemory()
	s, err := NewSealed(inner, key)
	require.NoError(t, err)
	exercise(t, s)

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "adminToken", "secret-token"))
	raw, err := inner.Get(ctx, "adminToken")
	require.NoError(t, err)
	require.NotContains(t, raw, "secret-token")

	// moving a sealed value under another key must not open
	require.NoError(t, inner.Set(ctx, "sellerToken", raw))
	_, err = s.Get(ctx, "sellerToken")
	require.Error(t, err)
}

func TestNewSealed_RejectsBadKey(t *testing.T) {
	t.Parallel()
	_, err := NewSealed(NewMemory(), []byte("short"))
	require.Error(t, err)
}

func TestDeviceKey_RandomIsStable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	k1, err := DeviceKey(dir, "")
	require.NoError(t, err)
	require.Len(t, k1, clientcrypto.DeviceKeyLen)
	k2, err := DeviceKey(dir, "")
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	st, err := os.Stat(filepath.Join(dir, deviceKeyFile))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())
}

func TestDeviceKey_PassphraseUsesStoredSalt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	k1, err := DeviceKey(dir, "pw")
	require.NoError(t, err)
	k2, err := DeviceKey(dir, "pw")
	require.NoError(t, err)
	require.Equal(t, k1, k2)
	k3, err := DeviceKey(dir, "other")
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)
}

func TestDeviceKey_RejectsTruncatedFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, deviceKeyFile), []byte{1, 2}, 0o600))
	_, err := DeviceKey(dir, "")
	require.Error(t, err)
}
