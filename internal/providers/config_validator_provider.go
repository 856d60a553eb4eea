package providers

import (
	"cftracker/internal/structures"
	"errors"
	"time"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors
	}

	// rules that depend on a sibling field
	switch {
	case cv.conf.Storage.Driver == "postgres" && cv.conf.Storage.DSN == "":
		return errors.New("storage.dsn is required for the postgres driver")
	case cv.conf.Mail.Driver == "sendgrid" && cv.conf.Mail.APIKey == "":
		return errors.New("mail.apiKey is required for the sendgrid driver")
	case cv.conf.Mail.Driver == "sendgrid" && cv.conf.Mail.FromEmail == "":
		return errors.New("mail.fromEmail is required for the sendgrid driver")
	case cv.conf.Cache.Enabled && cv.conf.Cache.Driver == "redis" && cv.conf.Cache.Redis.Addr == "":
		return errors.New("cache.redis.addr is required for the redis cache")
	case cv.conf.Sync.At != "" && cv.conf.Sync.Interval%(24*time.Hour) != 0:
		return errors.New("sync.at requires sync.interval to be a whole number of days")
	}
	return nil
}
