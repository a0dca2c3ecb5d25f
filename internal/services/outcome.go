package services

// Outcome is the result of a lifecycle command. Policy rejections are outcomes,
// not errors; the error return of a command is reserved for infrastructure faults.
type Outcome string

const (
	OutcomeOK                 Outcome = "ok"
	OutcomeDenied             Outcome = "denied"
	OutcomeTooFar             Outcome = "too_far"
	OutcomeValidationFailed   Outcome = "validation_failed"
	OutcomeInvalidSignature   Outcome = "invalid_signature"
	OutcomeLocationMissing    Outcome = "location_missing"
	OutcomeFull               Outcome = "full"
	OutcomeAlreadyBooked      Outcome = "already_booked"
	OutcomeAlreadyAssigned    Outcome = "already_assigned"
	OutcomeAlreadyCompleted   Outcome = "already_completed"
	OutcomeAlreadyRecorded    Outcome = "already_recorded"
	OutcomeShiftCancelled     Outcome = "shift_cancelled"
	OutcomeNotBooked          Outcome = "not_booked"
	OutcomeLimitReached       Outcome = "limit_reached"
	OutcomeFeatureUnavailable Outcome = "feature_unavailable"
	OutcomeNotFound           Outcome = "not_found"
)

// Category groups outcomes by how a caller should present them
type Category string

const (
	CategoryOK         Category = "ok"
	CategoryDenied     Category = "denied"
	CategoryValidation Category = "validation"
	CategoryConflict   Category = "conflict"
	CategoryLimit      Category = "limit"
	CategoryNotFound   Category = "not_found"
)

// Category returns the presentation group of the outcome
func (o Outcome) Category() Category {
	switch o {
	case OutcomeOK:
		return CategoryOK
	case OutcomeDenied, OutcomeTooFar:
		return CategoryDenied
	case OutcomeValidationFailed, OutcomeInvalidSignature, OutcomeLocationMissing:
		return CategoryValidation
	case OutcomeLimitReached, OutcomeFeatureUnavailable:
		return CategoryLimit
	case OutcomeNotFound:
		return CategoryNotFound
	default:
		return CategoryConflict
	}
}

// Decision is an outcome plus the user-facing explanation
type Decision struct {
	Outcome Outcome           `json:"outcome"`
	Reason  string            `json:"reason,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// OK reports whether the decision allows the command to proceed
func (d Decision) OK() bool {
	return d.Outcome == OutcomeOK
}

func allow() Decision {
	return Decision{Outcome: OutcomeOK}
}

func reject(outcome Outcome, reason string) Decision {
	return Decision{Outcome: outcome, Reason: reason}
}

func invalid(fields map[string]string) Decision {
	return Decision{
		Outcome: OutcomeValidationFailed,
		Reason:  "The submitted shift details are invalid",
		Fields:  fields,
	}
}
