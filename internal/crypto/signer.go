package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/avolkov/fillscope/internal/domain"
)

// DefaultTokenTTL is the bearer token lifetime. Tokens outlive the longest
// plausible paginated retrieval but expire the same session.
const DefaultTokenTTL = 10 * time.Minute

// AuthSigner issues short-lived bearer tokens for the trade-history API by
// signing an expiry-stamped claim with the account's secp256k1 API key.
type AuthSigner struct {
	tokenTTL time.Duration
}

// NewAuthSigner creates an AuthSigner. A non-positive ttl falls back to
// DefaultTokenTTL.
func NewAuthSigner(ttl time.Duration) *AuthSigner {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthSigner{tokenTTL: ttl}
}

// IssueToken resolves the account's key material and returns a bearer token
// of the form base64(claim).hex(signature), where the claim binds the
// account index, API key index, and an expiry deadline. Bad key material is
// reported as domain.ErrBadCredential before any request is made.
func (s *AuthSigner) IssueToken(creds domain.Credentials) (string, error) {
	keyHex, err := resolveKey(creds.PrivateKey, creds.EncryptedKeyPath, creds.KeyPassword)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrBadCredential, err)
	}

	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("%w: parse private key: %v", domain.ErrBadCredential, err)
	}

	deadline := time.Now().Add(s.tokenTTL).Unix()
	claim := strconv.FormatInt(creds.AccountIndex, 10) +
		":" + strconv.FormatInt(creds.APIKeyIndex, 10) +
		":" + strconv.FormatInt(deadline, 10)

	digest := ethcrypto.Keccak256([]byte(claim))
	sig, err := ethcrypto.Sign(digest, pk)
	if err != nil {
		return "", fmt.Errorf("%w: sign claim: %v", domain.ErrBadCredential, err)
	}

	return base64.RawURLEncoding.EncodeToString([]byte(claim)) + "." + hex.EncodeToString(sig), nil
}

// Compile-time interface check.
var _ domain.TokenIssuer = (*AuthSigner)(nil)
