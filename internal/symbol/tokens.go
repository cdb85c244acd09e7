package symbol

import (
	"fmt"
	"regexp"
	"strconv"
)

// tokenPattern accepts up to two comma or whitespace characters on either
// side of an optionally 0x-prefixed hex number of at most 8 digits.
var tokenPattern = regexp.MustCompile(`^[,\s]{0,2}(?:0x)?([0-9A-Fa-f]{1,8})[,\s]{0,2}$`)

// TokenError describes a discarded address token.
type TokenError struct {
	// Index is the token's position in the input
	Index int
	// Token is the raw token text
	Token string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("invalid address %q", e.Token)
}

// ParseToken parses a single address token.
func ParseToken(tok string) (uint32, error) {
	m := tokenPattern.FindStringSubmatch(tok)
	if m == nil {
		return 0, &TokenError{Token: tok}
	}
	v, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return 0, &TokenError{Token: tok}
	}
	return uint32(v), nil
}

// ParseTokens parses every token independently. Valid tokens are returned in
// order, duplicates included; invalid ones are returned as errors and
// otherwise skipped.
func ParseTokens(tokens []string) ([]uint32, []*TokenError) {
	addrs := make([]uint32, 0, len(tokens))
	var discarded []*TokenError
	for i, tok := range tokens {
		addr, err := ParseToken(tok)
		if err != nil {
			discarded = append(discarded, &TokenError{Index: i, Token: tok})
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs, discarded
}
