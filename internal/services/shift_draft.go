package services

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/staffhub/shift-engine/internal/models"
	postcode "github.com/staffhub/shift-engine/pkg/validator"
)

const dateLayout = "2006-01-02"

// NewValidator returns a struct validator that reports fields by their json
// names and understands the uk_postcode tag
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := postcode.NewPostcodeValidator().Register(v); err != nil {
		panic(fmt.Sprintf("register postcode validation: %v", err))
	}
	return v
}

// fieldErrors flattens validator errors into json-field → message
func fieldErrors(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "oneof":
		return "must be one of: " + fe.Param()
	case postcode.PostcodeTag:
		return "must be a valid UK postcode"
	case "latitude":
		return "must be between -90 and 90"
	case "longitude":
		return "must be between -180 and 180"
	default:
		return "is invalid"
	}
}

// parseClock accepts HH:MM or HH:MM:SS and returns the offset from midnight
func parseClock(s string) (time.Duration, bool) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}

func formatClock(d time.Duration) string {
	return time.Time{}.Add(d).Format("15:04:05")
}

// shiftDuration subtracts start from end within one day. A zero or negative
// result means the shift runs past midnight.
func shiftDuration(start, end time.Duration) (time.Duration, bool) {
	d := end - start
	overnight := false
	if d <= 0 {
		d += 24 * time.Hour
		overnight = true
	}
	return d, overnight
}

// calendarDay returns t's date in loc as a UTC midnight, the form DATE columns use
func calendarDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// applyDraft validates draft and copies it onto shift. The past-date rule is
// applied only when rejectPast is set. It returns field errors, or nil.
func (s *ShiftLifecycleService) applyDraft(shift *models.Shift, draft *models.ShiftDraft, rejectPast bool, now time.Time) map[string]string {
	fields := map[string]string{}
	if err := s.validate.Struct(draft); err != nil {
		fields = fieldErrors(err)
	}

	if !draft.HourlyRate.IsPositive() {
		fields["hourly_rate"] = "must be greater than 0"
	}

	shiftDate, err := time.Parse(dateLayout, draft.ShiftDate)
	if err == nil && rejectPast && shiftDate.Before(calendarDay(now, s.cfg.Location)) {
		fields["shift_date"] = "cannot be in the past"
	}

	start, startOK := parseClock(draft.StartTime)
	if !startOK && draft.StartTime != "" {
		fields["start_time"] = "must be a time in HH:MM format"
	}
	end, endOK := parseClock(draft.EndTime)
	if !endOK && draft.EndTime != "" {
		fields["end_time"] = "must be a time in HH:MM format"
	}

	var duration time.Duration
	var overnight bool
	if startOK && endOK {
		duration, overnight = shiftDuration(start, end)
		if duration <= 0 || duration > 24*time.Hour {
			fields["end_time"] = "shift duration must be more than 0 and at most 24 hours"
		}
	}

	var endDate *time.Time
	if err == nil {
		day := shiftDate
		if overnight {
			day = shiftDate.AddDate(0, 0, 1)
		}
		if draft.EndDate != nil {
			if d, perr := time.Parse(dateLayout, *draft.EndDate); perr == nil {
				switch {
				case d.Before(shiftDate):
					fields["end_date"] = "cannot be before shift_date"
				case !d.Equal(day):
					fields["end_date"] = "must match the day the shift ends"
				}
			}
		}
		endDate = &day
	}

	if len(fields) > 0 {
		return fields
	}

	shift.Name = strings.TrimSpace(draft.Name)
	shift.ShiftType = draft.ShiftType
	if shift.ShiftType == "" {
		shift.ShiftType = models.ShiftTypeRegular
	}
	shift.ShiftDate = shiftDate
	shift.StartTime = formatClock(start)
	shift.EndTime = formatClock(end)
	shift.EndDate = endDate
	shift.IsOvernight = overnight
	shift.DurationHours = math.Round(duration.Hours()*100) / 100
	shift.Capacity = draft.Capacity
	shift.HourlyRate = draft.HourlyRate
	shift.Notes = draft.Notes
	shift.Postcode = ""
	if draft.Postcode != "" {
		shift.Postcode, _ = postcode.NewPostcodeValidator().Format(draft.Postcode)
	}
	shift.AddressLine1 = draft.AddressLine1
	shift.AddressLine2 = draft.AddressLine2
	shift.City = draft.City
	shift.County = draft.County
	shift.Country = draft.Country
	shift.Latitude = draft.Latitude
	shift.Longitude = draft.Longitude
	return nil
}
