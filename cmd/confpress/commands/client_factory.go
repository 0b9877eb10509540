package commands

import (
	"time"

	"confpress/internal/confluence"
	"confpress/pkg/logger"
)

// newConfluenceClient is a package-level variable to allow test injection of a mock.
// Production code uses the real client constructor; tests can override this.
var newConfluenceClient = func(baseURL, user, token string, timeout time.Duration, log *logger.Logger) confluence.API {
	return confluence.NewClient(baseURL, user, token, timeout, log)
}
