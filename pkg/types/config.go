package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by the CLI when a key is absent from the config file.
const (
	DefaultAPIBase         = "https://api.openalex.org/works"
	DefaultUnpaywallAPI    = "https://api.unpaywall.org/v2"
	DefaultUserAgent       = "oa-harvest/0.1"
	DefaultPerPage         = 25
	DefaultPages           = 1
	DefaultWorkers         = 4
	DefaultOutDir          = "pdfs"
	DefaultFetchTimeout    = 30 * time.Second
	DefaultResolveTimeout  = 20 * time.Second
	DefaultDownloadTimeout = 60 * time.Second
	DefaultMinPDFBytes     = 1024
)

// HTTPConfig holds shared HTTP settings used by every stage that makes
// network requests.
type HTTPConfig struct {
	// UserAgent is the User-Agent header sent with API and download requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" validate:"required"`

	// Referer is sent with OpenAlex requests when set.
	Referer string `json:"referer,omitempty" yaml:"referer,omitempty"`
}

// LogConfig selects the logger level and output format.
type LogConfig struct {
	Level  string `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `json:"log_format" yaml:"log_format" validate:"omitempty,oneof=json console"`
}

// HarvestConfig is the validated configuration for one harvest run.
// Build it once from the config file, call Validate, and pass it by value.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline"`
	LogConfig  `yaml:",inline"`

	// Topic is the OpenAlex full-text search string.
	Topic string `json:"topic" yaml:"topic" validate:"notblank"`

	// PerPage is the OpenAlex page size.
	PerPage int `json:"per_page" yaml:"per_page" validate:"min=1,max=200"`

	// Pages is the number of result pages to fetch.
	Pages int `json:"pages" yaml:"pages" validate:"min=1"`

	// MinCitations drops works cited fewer times; nil disables the filter.
	MinCitations *int `json:"min_citations" yaml:"min_citations" validate:"omitempty,min=0"`

	// OutDir receives the downloaded PDFs.
	OutDir string `json:"outdir" yaml:"outdir" validate:"required"`

	// Workers bounds the number of concurrent resolve+download operations.
	Workers int `json:"workers" yaml:"workers" validate:"min=1"`

	// Email enables the Unpaywall fallback and the OpenAlex polite pool.
	// Empty means direct-only resolution.
	Email string `json:"email" yaml:"email" validate:"omitempty,email"`

	APIBase      string `json:"api_base" yaml:"api_base" validate:"required,url"`
	UnpaywallAPI string `json:"unpaywall_api" yaml:"unpaywall_api" validate:"required,url"`

	FetchTimeout    time.Duration `json:"fetch_timeout" yaml:"fetch_timeout" validate:"gt=0"`
	ResolveTimeout  time.Duration `json:"resolve_timeout" yaml:"resolve_timeout" validate:"gt=0"`
	DownloadTimeout time.Duration `json:"download_timeout" yaml:"download_timeout" validate:"gt=0"`

	// MinPDFBytes rejects downloads smaller than this many bytes; zero
	// disables the check.
	MinPDFBytes int64 `json:"min_pdf_bytes" yaml:"min_pdf_bytes" validate:"min=0"`

	// VerifyPDF parses each download and rejects files with no pages.
	VerifyPDF bool `json:"verify_pdf" yaml:"verify_pdf"`

	// LedgerPath is the SQLite run history database; empty disables it.
	LedgerPath string `json:"ledger_path,omitempty" yaml:"ledger_path,omitempty"`

	// MetricsFile receives Prometheus text-format metrics after the run;
	// empty disables the export.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
}

// UnpaywallEnabled reports whether the Unpaywall fallback may be used.
func (c HarvestConfig) UnpaywallEnabled() bool {
	return c.Email != ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config-file key.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate checks every field against its range and returns one error
// describing all violations.
func (c HarvestConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %q)", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s is not a valid %s (got %v)", fe.Field(), fe.Tag(), fe.Value())
	}
}
