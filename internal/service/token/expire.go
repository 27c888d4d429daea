package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// DefaultTTL is used when the token does not tell its own expiry.
const DefaultTTL = 24 * time.Hour

var segmentParser = jwt.NewParser()

// ExpireAt returns the epoch millisecond at which tok expires: the exp claim of
// a three segment token, or now+DefaultTTL when the claims can't be read.
//
// The fallback hides malformed tokens instead of rejecting them. The server is
// the one that validates tokens, so the client keeps whatever it was given.
func ExpireAt(tok string, now time.Time) int64 {
	exp, err := claimedExpiry(tok)
	if err != nil {
		return now.Add(DefaultTTL).UnixMilli()
	}
	return exp.UnixMilli()
}

func claimedExpiry(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return time.Time{}, errors.Errorf("token has %d segments", len(parts))
	}
	payload, err := decodeClaims(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, errors.Wrap(err, "unmarshalling claims")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "reading exp claim")
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}

// decodeClaims accepts the url-safe alphabet of signed tokens as well as the
// standard one, padded or not.
func decodeClaims(seg string) ([]byte, error) {
	seg = strings.TrimRight(seg, "=")
	payload, err := segmentParser.DecodeSegment(seg)
	if err == nil {
		return payload, nil
	}
	payload, stdErr := base64.RawStdEncoding.DecodeString(seg)
	if stdErr != nil {
		return nil, errors.Wrap(err, "decoding claims segment")
	}
	return payload, nil
}
