package email

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxLen matches the users.email column.
const MaxLen = 50

var (
	ErrInvalidAddress = errors.New("invalid email address")
	ErrTooLong        = fmt.Errorf("email must be at most %d characters", MaxLen)
)

var validate = validator.New()

// Normalize validates an optional address and lowercases it. Empty input
// yields nil.
func Normalize(raw string) (*string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	if err := validate.Var(s, fmt.Sprintf("email,max=%d", MaxLen)); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			return nil, ErrTooLong
		}
		return nil, ErrInvalidAddress
	}
	s = strings.ToLower(s)
	return &s, nil
}
