package validate

import (
	"regexp"
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

var (
	reProductID = regexp.MustCompile(`^(FOOD|ELEC|CLTH|BOOK|HOME|SPRT)\d{3}$`)
	reQ         = regexp.MustCompile(`^[A-Za-z0-9 _'\\-]{1,50}$`)
	reCategory  = regexp.MustCompile(`^[A-Za-z]{1,20}$`)
)

// ProductID normalizes shopper input (trim + upper) and checks the id format.
func ProductID(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, reProductID.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

func Category(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reCategory.MatchString(s)
}

// Qty parses a requested quantity. Negative values are kept so the cart can clamp them.
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	if n > 99 {
		n = 99
	} // clamp to avoid abuse
	return n, true
}

// Pin checks the admin PIN shape before it is compared against the hash.
func Pin(s string) bool {
	l := len(s)
	if l < 4 || l > 12 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// New returns a struct validator that understands the `productid` tag.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	_ = v.RegisterValidation("productid", func(fl validatorv10.FieldLevel) bool {
		return reProductID.MatchString(fl.Field().String())
	})
	return v
}

// Fields flattens validator errors into field -> tag for JSON responses.
func Fields(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
	} else if err != nil {
		out["error"] = err.Error()
	}
	return out
}
