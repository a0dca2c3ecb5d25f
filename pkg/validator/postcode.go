package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// PostcodeTag is the struct tag registered with go-playground/validator
const PostcodeTag = "uk_postcode"

var (
	// ErrEmptyPostcode indicates the postcode is empty
	ErrEmptyPostcode = errors.New("postcode cannot be empty")

	// ErrInvalidPostcodeLength indicates the postcode is not 5 to 7 characters once sanitized
	ErrInvalidPostcodeLength = errors.New("postcode must be between 5 and 7 characters")

	// ErrInvalidPostcodeFormat indicates the postcode does not match the UK format
	ErrInvalidPostcodeFormat = errors.New("postcode must be a valid UK postcode, e.g. SW1A 1AA")
)

// outward code (area + district) followed by inward code (sector + unit)
var postcodeRegex = regexp.MustCompile(`^([A-Z]{1,2}[0-9][A-Z0-9]?)([0-9][A-Z]{2})$`)

// PostcodeValidator handles UK postcode validation
type PostcodeValidator struct{}

// NewPostcodeValidator creates a new postcode validator instance
func NewPostcodeValidator() *PostcodeValidator {
	return &PostcodeValidator{}
}

// Validate validates a UK postcode.
// Accepts format: SW1A1AA, sw1a 1aa or SW1A-1AA
// Returns the sanitized postcode (upper case, no separators) and error if invalid
func (v *PostcodeValidator) Validate(postcode string) (string, error) {
	if strings.TrimSpace(postcode) == "" {
		return "", ErrEmptyPostcode
	}

	sanitized := v.Sanitize(postcode)

	if len(sanitized) < 5 || len(sanitized) > 7 {
		return "", ErrInvalidPostcodeLength
	}

	if sanitized == "GIR0AA" {
		return sanitized, nil
	}

	if !postcodeRegex.MatchString(sanitized) {
		return "", ErrInvalidPostcodeFormat
	}

	return sanitized, nil
}

// Sanitize upper-cases the postcode and strips spaces and dashes
func (v *PostcodeValidator) Sanitize(postcode string) string {
	postcode = strings.ToUpper(postcode)
	postcode = strings.ReplaceAll(postcode, " ", "")
	postcode = strings.ReplaceAll(postcode, "-", "")
	postcode = strings.ReplaceAll(postcode, "\t", "")
	return postcode
}

// Format returns the postcode in display format: outward code, space, inward code
func (v *PostcodeValidator) Format(postcode string) (string, error) {
	sanitized, err := v.Validate(postcode)
	if err != nil {
		return "", err
	}

	split := len(sanitized) - 3
	return fmt.Sprintf("%s %s", sanitized[:split], sanitized[split:]), nil
}

// Outward returns the outward code (e.g. "SW1A" for "SW1A 1AA")
func (v *PostcodeValidator) Outward(postcode string) (string, error) {
	sanitized, err := v.Validate(postcode)
	if err != nil {
		return "", err
	}
	return sanitized[:len(sanitized)-3], nil
}

// IsValid is a convenience method that returns true if the postcode is valid
func (v *PostcodeValidator) IsValid(postcode string) bool {
	_, err := v.Validate(postcode)
	return err == nil
}

// Register adds the uk_postcode tag to a go-playground validator
func (v *PostcodeValidator) Register(validate *playground.Validate) error {
	return validate.RegisterValidation(PostcodeTag, func(fl playground.FieldLevel) bool {
		return v.IsValid(fl.Field().String())
	})
}
