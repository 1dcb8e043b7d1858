package ter

import (
	"encoding/json"
	"fmt"
)

// Code is a transaction result. The zero value is Success.
type Code struct {
	v int16
}

type category uint8

const (
	catLocal category = iota + 1
	catMalformed
	catFailure
	catRetry
	catSuccess
	catClaim
)

func (c Code) category() category {
	switch {
	case c.v >= -399 && c.v <= -300:
		return catLocal
	case c.v >= -299 && c.v <= -200:
		return catMalformed
	case c.v >= -199 && c.v <= -100:
		return catFailure
	case c.v >= -99 && c.v <= -1:
		return catRetry
	case c.v == 0:
		return catSuccess
	default:
		return catClaim
	}
}

// IsLocal reports whether c is a tel code.
func IsLocal(c Code) bool { return c.category() == catLocal }

// IsMalformed reports whether c is a tem code.
func IsMalformed(c Code) bool { return c.category() == catMalformed }

// IsFailure reports whether c is a tef code.
func IsFailure(c Code) bool { return c.category() == catFailure }

// IsRetry reports whether c is a ter code.
func IsRetry(c Code) bool { return c.category() == catRetry }

// IsSuccess reports whether c is tesSUCCESS.
func IsSuccess(c Code) bool { return c.category() == catSuccess }

// IsTecClaim reports whether c is a fee-claiming failure.
func IsTecClaim(c Code) bool { return c.category() == catClaim }

// Token returns the short symbolic name, e.g. "tecUNFUNDED_PAYMENT".
func (c Code) Token() string {
	if info, ok := infos[c]; ok {
		return info.token
	}
	return fmt.Sprintf("ter%d", c.v)
}

// Human returns the human-readable description of c.
func (c Code) Human() string {
	if info, ok := infos[c]; ok {
		return info.human
	}
	return "Unknown result code."
}

// String implements fmt.Stringer.
func (c Code) String() string { return c.Token() }

// Int returns the wire value of c. Used only by serialization layers.
func (c Code) Int() int { return int(c.v) }

// MarshalJSON renders c as its token.
func (c Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Token())
}

// UnmarshalJSON parses a token produced by MarshalJSON.
func (c *Code) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("ter: %w", err)
	}
	parsed, err := Parse(token)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse looks up a code by token.
func Parse(token string) (Code, error) {
	if c, ok := byToken[token]; ok {
		return c, nil
	}
	return Code{}, fmt.Errorf("ter: unknown result token %q", token)
}

// FromInt looks up a code by wire value. Unknown values are rejected so a
// corrupt journal row can never be mistaken for a real verdict.
func FromInt(v int) (Code, error) {
	c := Code{v: int16(v)}
	if int(c.v) != v {
		return Code{}, fmt.Errorf("ter: result value %d out of range", v)
	}
	if _, ok := infos[c]; !ok {
		return Code{}, fmt.Errorf("ter: unknown result value %d", v)
	}
	return c, nil
}
