package actions

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/metrics"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/gorilla/schema"
)

// Opts wires the dependencies of [Actions]. Mailer, Verifier and Metrics are optional.
type Opts struct {
	Users        *repositories.UserRepository
	Students     *repositories.StudentRepository
	Attendance   *repositories.AttendanceRepository
	Payments     *repositories.PaymentRepository
	Expenses     *repositories.ExpenseRepository
	Mailer       services.Mailer
	Verifier     services.Verifier
	Metrics      *metrics.Metrics
	Logger       *log.Logger
	School       string
	ContactEmail string
}

// Actions performs validated writes and reports their outcome as [models.Result].
type Actions struct {
	users        *repositories.UserRepository
	students     *repositories.StudentRepository
	attendance   *repositories.AttendanceRepository
	payments     *repositories.PaymentRepository
	expenses     *repositories.ExpenseRepository
	mailer       services.Mailer
	verifier     services.Verifier
	metrics      *metrics.Metrics
	logger       *log.Logger
	school       string
	contactEmail string
	now          func() time.Time
}

// New creates an [Actions].
func New(opts Opts) *Actions {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.School == "" {
		opts.School = "Encore School of Music"
	}

	return &Actions{
		users:        opts.Users,
		students:     opts.Students,
		attendance:   opts.Attendance,
		payments:     opts.Payments,
		expenses:     opts.Expenses,
		mailer:       opts.Mailer,
		verifier:     opts.Verifier,
		metrics:      opts.Metrics,
		logger:       shared.WithLogger(opts.Logger, "component", "actions"),
		school:       opts.School,
		contactEmail: opts.ContactEmail,
		now:          time.Now,
	}
}

// fail converts err into an error result, logging anything that is not a user-facing failure.
func (a *Actions) fail(action string, err error, fallback string) models.Result {
	result := models.FromError(err, fallback)
	if result.Message == fallback && result.FieldErrors == nil {
		a.logger.Error(action+" failed", "error", err)
	} else {
		a.logger.Debug(action+" rejected", "error", err)
	}
	return result
}

func (a *Actions) today() time.Time { return shared.DateOnly(a.now()) }

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("form")
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	d.MaxSize(500)

	d.RegisterConverter(time.Time{}, func(s string) reflect.Value {
		if strings.TrimSpace(s) == "" {
			return reflect.ValueOf(time.Time{})
		}
		t, err := shared.ParseDate(s)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(t)
	})

	d.RegisterConverter(false, func(s string) reflect.Value {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "true", "1", "yes":
			return reflect.ValueOf(true)
		case "", "off", "false", "0", "no":
			return reflect.ValueOf(false)
		}
		return reflect.Value{}
	})
	return d
}

// Bind decodes posted form values into dst, a pointer to an input struct.
//
// Values that cannot be converted (a malformed date or amount) are reported as a [models.ValidationError]
// keyed by form field.
func Bind(values url.Values, dst any) error {
	err := decoder.Decode(dst, values)
	if err == nil {
		return nil
	}

	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	verr := &models.ValidationError{}
	for key, ferr := range multi {
		field := key
		if i := strings.LastIndex(key, "."); i >= 0 {
			field = key[i+1:]
		}

		var conv schema.ConversionError
		if errors.As(ferr, &conv) && conv.Type == reflect.TypeOf(time.Time{}) {
			verr.Add(key, fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field))
			continue
		}
		verr.Add(key, fmt.Sprintf("%s is not valid", field))
	}
	return verr
}
