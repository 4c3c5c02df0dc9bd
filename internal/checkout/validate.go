package checkout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sajilostore/storefront/internal/model"
)

// FieldError is a validation failure rendered next to its field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors collects per-field failures; any entry blocks
// submission.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "invalid delivery info: " + strings.Join(msgs, "; ")
}

var (
	digitRe = regexp.MustCompile(`\d`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidateDeliveryInfo checks the delivery form rules: name present and
// free of digits, address present, phone carrying at least ten digits,
// email syntactically valid.
func ValidateDeliveryInfo(d model.DeliveryInfo) error {
	var errs ValidationErrors

	name := strings.TrimSpace(d.Name)
	switch {
	case name == "":
		errs = append(errs, FieldError{Field: "name", Message: "Name is required"})
	case digitRe.MatchString(name):
		errs = append(errs, FieldError{Field: "name", Message: "Name cannot contain numbers"})
	}

	if strings.TrimSpace(d.Address) == "" {
		errs = append(errs, FieldError{Field: "address", Message: "Address is required"})
	}

	if len(digitRe.FindAllString(d.Phone, -1)) < 10 {
		errs = append(errs, FieldError{Field: "phone", Message: "Phone must be at least 10 digits"})
	}

	if !emailRe.MatchString(strings.TrimSpace(d.Email)) {
		errs = append(errs, FieldError{Field: "email", Message: "Invalid email"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
