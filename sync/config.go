package sync

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config carries everything one engine invocation needs. It is passed in
// explicitly; there is no global settings record.
type Config struct {
	// FeedBaseURL is the upstream SIS endpoint root, e.g. "http://fms.local/odoosync".
	FeedBaseURL string `validate:"required,url"`

	// FetchTimeout bounds every remote call; expiry surfaces as UpstreamUnavailable.
	FetchTimeout time.Duration `validate:"required,gt=0"`

	// MaxDocsPerRun caps documents created in one invocation. The remainder
	// is picked up by the next pass; every step downstream is idempotent.
	MaxDocsPerRun int `validate:"gte=1"`

	// SyncBackURL receives (chargeID, documentID, totalAmount) after posting.
	// Empty disables sync-back reporting.
	SyncBackURL string `validate:"omitempty,url"`
}

var validate = validator.New()

func (c Config) Validate() error {
	return validate.Struct(c)
}
