package crypto

import (
	"testing"
)

func TestSecretBoxRoundtrip(t *testing.T) {
	secret := [32]byte{}
	for i := 0; i < 32; i++ {
		secret[i] = byte(i)
	}

	testData := map[string]interface{}{
		"chatId": "6622f1f0c3a9",
		"name":   "lunch crew",
	}

	encrypted, err := Seal(testData, &secret)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Format: 24 byte nonce + ciphertext + 16 byte auth tag.
	if len(encrypted) < 24+16 {
		t.Fatalf("encrypted data too short: %d bytes", len(encrypted))
	}

	var decrypted map[string]interface{}
	if err := Open(encrypted, &secret, &decrypted); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if decrypted["chatId"] != "6622f1f0c3a9" {
		t.Errorf("chatId mismatch: got %v", decrypted["chatId"])
	}
	if decrypted["name"] != "lunch crew" {
		t.Errorf("name mismatch: got %v", decrypted["name"])
	}
}

func TestSecretBoxWrongKey(t *testing.T) {
	correctKey := [32]byte{}
	wrongKey := [32]byte{}
	for i := 0; i < 32; i++ {
		correctKey[i] = byte(i)
		wrongKey[i] = byte(i + 1)
	}

	encrypted, err := Seal(map[string]string{"test": "data"}, &correctKey)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	var decrypted map[string]string
	if err := Open(encrypted, &wrongKey, &decrypted); err == nil {
		t.Error("Open should have failed with wrong key")
	}
}

func TestSecretBoxTooShort(t *testing.T) {
	key := [32]byte{}
	shortData := make([]byte, 20)

	var decrypted interface{}
	if err := Open(shortData, &key, &decrypted); err == nil {
		t.Error("Open should have failed with short data")
	}
}

func TestSecretBoxCorruptedData(t *testing.T) {
	key := [32]byte{}
	for i := 0; i < 32; i++ {
		key[i] = byte(i)
	}

	encrypted, err := Seal(map[string]string{"test": "data"}, &key)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	encrypted[30] ^= 0xFF

	var decrypted map[string]string
	if err := Open(encrypted, &key, &decrypted); err == nil {
		t.Error("Open should have failed with corrupted data")
	}
}
