package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"hbank/internal/money"

	playground "github.com/go-playground/validator/v10"
)

var (
	ErrInvalidAccountID = errors.New("invalid account id")
	ErrInvalidUsername  = errors.New("invalid username")
	ErrInvalidPassword  = errors.New("invalid password")
)

var (
	accountIDRegex = regexp.MustCompile(`^(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)$`)
	usernameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

// AccountID is a ledger account in shard.realm.num form.
type AccountID struct {
	Shard int64
	Realm int64
	Num   int64
}

func ParseAccountID(raw string) (AccountID, error) {
	parts := accountIDRegex.FindStringSubmatch(raw)
	if parts == nil {
		return AccountID{}, fmt.Errorf("%w: %q", ErrInvalidAccountID, raw)
	}
	var values [3]int64
	for i := range values {
		value, err := strconv.ParseInt(parts[i+1], 10, 64)
		if err != nil {
			return AccountID{}, fmt.Errorf("%w: %q", ErrInvalidAccountID, raw)
		}
		values[i] = value
	}
	return AccountID{Shard: values[0], Realm: values[1], Num: values[2]}, nil
}

func (a AccountID) String() string {
	return fmt.Sprintf("%d.%d.%d", a.Shard, a.Realm, a.Num)
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

// New returns a struct validator that understands the hedera_account and
// currency tags in addition to the built-in ones.
func New() *playground.Validate {
	v := playground.New()
	_ = v.RegisterValidation("hedera_account", func(fl playground.FieldLevel) bool {
		_, err := ParseAccountID(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("currency", func(fl playground.FieldLevel) bool {
		_, err := money.ParseCurrency(fl.Field().String())
		return err == nil
	})
	return v
}
