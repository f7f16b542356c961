package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "go-gin-event-registration/pkg/app_errors"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 錯誤欄位使用 json 名稱，與 API 欄位一致
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// fieldErrors 將 validator 錯誤轉為 欄位 -> 訊息
func fieldErrors(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return fields
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fmt.Sprintf("must match the format %s", fe.Param())
	case "eqfield":
		return fmt.Sprintf("must match %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ParseSchedule 將 date + start/end time 解析為 UTC 時間
func ParseSchedule(date, start, end string) (time.Time, time.Time, error) {
	fields := map[string]string{}
	day, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		fields["date"] = "must match the format " + DateLayout
	}
	startClock, err := time.Parse(TimeLayout, strings.TrimSpace(start))
	if err != nil {
		fields["start_time"] = "must match the format " + TimeLayout
	}
	endClock, err := time.Parse(TimeLayout, strings.TrimSpace(end))
	if err != nil {
		fields["end_time"] = "must match the format " + TimeLayout
	}
	if len(fields) > 0 {
		return time.Time{}, time.Time{}, apperrors.NewValidationError(fields)
	}

	startsAt := day.Add(time.Duration(startClock.Hour())*time.Hour + time.Duration(startClock.Minute())*time.Minute)
	endsAt := day.Add(time.Duration(endClock.Hour())*time.Hour + time.Duration(endClock.Minute())*time.Minute)
	if !endsAt.After(startsAt) {
		return time.Time{}, time.Time{}, apperrors.FieldError("end_time", "must be later than start_time")
	}
	return startsAt.UTC(), endsAt.UTC(), nil
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

func validateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return apperrors.NewValidationError(fieldErrors(err))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(trim(email))
}
