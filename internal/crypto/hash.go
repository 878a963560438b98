package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// HashAuthKey возвращает hex-encoded SHA256 от ключа аутентификации
func HashAuthKey(authKey []byte) (string, error) {
	if len(authKey) == 0 {
		return "", fmt.Errorf("auth key cannot be empty")
	}
	hash := sha256.Sum256(authKey)
	return hex.EncodeToString(hash[:]), nil
}

// HashesEqual сравнивает хеши за постоянное время
func HashesEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
