package auth

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials covers both unknown email and wrong password. The two
// cases are never distinguishable from outside this package.
var ErrInvalidCredentials = errors.New("auth: invalid email or password")

// ErrInvalidToken indicates the token failed verification. The specific
// reasons below wrap it; handlers surface only the collapsed form so clients
// cannot tell why a token was rejected.
var (
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrTokenMalformed   = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrSignatureInvalid = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrTokenExpired     = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrUserGone         = fmt.Errorf("%w: unknown subject", ErrInvalidToken)
)
