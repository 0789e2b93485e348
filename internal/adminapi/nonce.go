package adminapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const (
	nonceLengthConstant    = 20
	nonceSeparatorConstant = "|"
)

// NonceManager issues and verifies request nonces bound to an action and a principal.
// A nonce stays valid for the tick it was issued in and the following one.
type NonceManager struct {
	secret   []byte
	lifetime time.Duration
	clock    func() time.Time
}

// NewNonceManager constructs a NonceManager. A non-positive lifetime selects DefaultNonceLifetime.
func NewNonceManager(secret string, lifetime time.Duration, clock func() time.Time) *NonceManager {
	if lifetime <= 0 {
		lifetime = DefaultNonceLifetime
	}
	if clock == nil {
		clock = time.Now
	}
	return &NonceManager{secret: []byte(secret), lifetime: lifetime, clock: clock}
}

// Issue returns the nonce for the current tick.
func (manager *NonceManager) Issue(action string, principal string) string {
	return manager.sign(action, principal, manager.tick())
}

// Verify accepts nonces from the current and the previous tick.
func (manager *NonceManager) Verify(action string, principal string, nonce string) bool {
	if len(nonce) == 0 {
		return false
	}
	currentTick := manager.tick()
	for _, tick := range []int64{currentTick, currentTick - 1} {
		if hmac.Equal([]byte(manager.sign(action, principal, tick)), []byte(nonce)) {
			return true
		}
	}
	return false
}

func (manager *NonceManager) tick() int64 {
	halfLifetime := int64(manager.lifetime / 2)
	if halfLifetime <= 0 {
		halfLifetime = 1
	}
	return manager.clock().UnixNano() / halfLifetime
}

func (manager *NonceManager) sign(action string, principal string, tick int64) string {
	mac := hmac.New(sha256.New, manager.secret)
	mac.Write([]byte(strconv.FormatInt(tick, 10) + nonceSeparatorConstant + action + nonceSeparatorConstant + principal))
	return hex.EncodeToString(mac.Sum(nil))[:nonceLengthConstant]
}
