package storage

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	path := UploadPath(uuid.New(), "image/jpeg")
	if !strings.HasSuffix(path, ".jpg") {
		t.Errorf("path = %q, want .jpg suffix", path)
	}

	data := []byte("fake image bytes")
	if err := store.Put(path, data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get = %q, want %q", got, data)
	}

	if err := store.Delete(path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(path); err == nil {
		t.Error("Get after Delete should fail")
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	for _, path := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		if err := store.Put(path, []byte("x")); err == nil {
			t.Errorf("Put(%q) should fail", path)
		}
		if _, err := store.Get(path); err == nil {
			t.Errorf("Get(%q) should fail", path)
		}
	}
}

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("test-secret", time.Minute)
	signer.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	path := "user-1/receipt.jpg"
	signed := signer.Sign(path)
	if !strings.HasPrefix(signed, "/files/"+path+"?") {
		t.Fatalf("signed url = %q, want /files/%s prefix", signed, path)
	}

	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	exp := u.Query().Get("exp")
	sig := u.Query().Get("sig")

	if err := signer.Verify(path, exp, sig); err != nil {
		t.Errorf("Verify: %v", err)
	}
	if err := signer.Verify("user-2/receipt.jpg", exp, sig); err == nil {
		t.Error("Verify with a different path should fail")
	}
	if err := signer.Verify(path, exp, "deadbeef"); err == nil {
		t.Error("Verify with a bad signature should fail")
	}

	// Move the clock past the expiry.
	signer.now = func() time.Time { return time.Unix(1_700_000_000+120, 0) }
	if err := signer.Verify(path, exp, sig); err == nil {
		t.Error("Verify after expiry should fail")
	}
}

func TestSignerTamperedExpiry(t *testing.T) {
	signer := NewSigner("test-secret", time.Minute)
	signer.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	path := "user-1/receipt.jpg"
	signed := signer.Sign(path)
	u, _ := url.Parse(signed)
	sig := u.Query().Get("sig")

	// Extending the expiry without re-signing must not verify.
	if err := signer.Verify(path, "9999999999", sig); err == nil {
		t.Error("Verify with a forged expiry should fail")
	}
}
