package protocol

import (
	"crypto/ed25519"
	"crypto/sha256"
)

// KeyFromSeed derives an ed25519 key from a passphrase. It is meant for
// test networks and scenarios, where accounts are named rather than
// generated.
func KeyFromSeed(seed string) ed25519.PrivateKey {
	sum := sha256.Sum256([]byte(seed))
	return ed25519.NewKeyFromSeed(sum[:])
}

// SigningKey returns the prefixed public key carried in SigningPubKey.
func SigningKey(priv ed25519.PrivateKey) []byte {
	pub := priv.Public().(ed25519.PublicKey)
	return append([]byte{KeyPrefixEd25519}, pub...)
}

// AccountFromSeed returns the account controlled by KeyFromSeed(seed).
func AccountFromSeed(seed string) AccountID {
	return AccountIDFromPublicKey(SigningKey(KeyFromSeed(seed)))
}
