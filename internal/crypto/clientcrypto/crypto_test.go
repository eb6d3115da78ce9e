package clientcrypto

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"testing"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	const n = 48
	a, err := Rand(n)
	if err != nil {
		t.Fatalf("Rand: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := Rand(n)
	if bytes.Equal(a, b) {
		t.Fatalf("Rand produced equal slices")
	}
}

func TestDeriveDeviceKey_DeterministicAndSaltDependent(t *testing.T) {
	t.Parallel()
	pw := []byte("secret-pass")
	s1 := []byte("salt-1")
	s2 := []byte("salt-2")
	k1 := DeriveDeviceKey(pw, s1)
	if len(k1) != DeviceKeyLen {
		t.Fatalf("key len=%d", len(k1))
	}
	if subtle.ConstantTimeCompare(k1, DeriveDeviceKey(pw, s1)) != 1 {
		t.Fatalf("DeriveDeviceKey not deterministic")
	}
	if subtle.ConstantTimeCompare(k1, DeriveDeviceKey(pw, s2)) != 0 {
		t.Fatalf("DeriveDeviceKey must change with salt")
	}
	if subtle.ConstantTimeCompare(k1, DeriveDeviceKey([]byte("other"), s1)) != 0 {
		t.Fatalf("DeriveDeviceKey must change with passphrase")
	}
}

func TestDeriveEntryKey_PerEntry(t *testing.T) {
	t.Parallel()
	dev, _ := Rand(DeviceKeyLen)
	a, err := DeriveEntryKey(dev, "adminToken")
	if err != nil {
		t.Fatalf("DeriveEntryKey: %v", err)
	}
	a2, _ := DeriveEntryKey(dev, "adminToken")
	b, _ := DeriveEntryKey(dev, "sellerToken")
	if !bytes.Equal(a, a2) {
		t.Fatalf("entry key not deterministic")
	}
	if bytes.Equal(a, b) {
		t.Fatalf("entry keys must differ per entry")
	}
}

func TestSealOpen_RoundTripAndAADBinding(t *testing.T) {
	t.Parallel()
	key, _ := Rand(DeviceKeyLen)
	pt := []byte(`{"_id":"u1"}`)

	blob, err := Seal(key, []byte("shopverseUser"), pt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	got, err := Open(key, []byte("shopverseUser"), blob)
	if err != nil || !bytes.Equal(got, pt) {
		t.Fatalf("Open: %q %v", got, err)
	}
	if _, err := Open(key, []byte("adminInfo"), blob); err == nil {
		t.Fatalf("Open must fail with different aad")
	}
	other, _ := Rand(DeviceKeyLen)
	if _, err := Open(other, []byte("shopverseUser"), blob); err == nil {
		t.Fatalf("Open must fail with different key")
	}
	blob[len(blob)-1] ^= 0xFF
	if _, err := Open(key, []byte("shopverseUser"), blob); err == nil {
		t.Fatalf("Open must detect tampering")
	}
}

func TestOpen_ShortBlobAndBadKey(t *testing.T) {
	t.Parallel()
	key, _ := Rand(DeviceKeyLen)
	if _, err := Open(key, nil, []byte{1, 2, 3}); !errors.Is(err, ErrShortBlob) {
		t.Fatalf("want ErrShortBlob, got %v", err)
	}
	if _, err := Seal([]byte("short"), nil, []byte("x")); err == nil {
		t.Fatalf("Seal must reject bad key size")
	}
}
