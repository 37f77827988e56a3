package backend

import (
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const apiPrefix = "/api/v1"

// Endpoints holds every backend URL the client talks to. All of them are
// plain concatenations onto the base URL.
type Endpoints struct {
	base string
}

// NewEndpoints validates baseURL and derives the endpoint set from it.
func NewEndpoints(baseURL string) (Endpoints, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")

	if err := validation.Validate(base,
		validation.Required,
		validation.By(validateScheme),
	); err != nil {
		return Endpoints{}, err
	}

	return Endpoints{base: base}, nil
}

func (e Endpoints) Base() string {
	return e.base
}

func (e Endpoints) API() string {
	return e.base + apiPrefix
}

func (e Endpoints) Documents() string {
	return e.API() + "/documents"
}

// List is also the liveness probe target.
func (e Endpoints) List() string {
	return e.Documents() + "/list"
}

func (e Endpoints) Upload() string {
	return e.Documents() + "/upload"
}

func (e Endpoints) Document(id string) string {
	return e.Documents() + "/" + url.PathEscape(id)
}

func validateScheme(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsed.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
