package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type ResetTokenPurger interface {
	PurgeExpiredResetTokens(ctx context.Context) (int64, error)
}

// ResetTokenJanitor clears reset tokens whose expiry has passed. Expired
// tokens are already unusable; this keeps them out of the collection.
type ResetTokenJanitor struct {
	purger  ResetTokenPurger
	logger  *logrus.Logger
	timeout time.Duration
}

func NewResetTokenJanitor(purger ResetTokenPurger, logger *logrus.Logger) *ResetTokenJanitor {
	return &ResetTokenJanitor{purger: purger, logger: logger, timeout: 30 * time.Second}
}

// Run implements cron.Job.
func (j *ResetTokenJanitor) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	n, err := j.purger.PurgeExpiredResetTokens(ctx)
	if err != nil {
		j.logger.WithError(err).Error("purge expired reset tokens failed")
		return
	}
	if n > 0 {
		j.logger.WithField("purged", n).Info("expired reset tokens purged")
	}
}

// Schedule registers the janitor on c using a standard cron spec or descriptor
// such as "@hourly".
func Schedule(c *cron.Cron, spec string, j cron.Job) (cron.EntryID, error) {
	return c.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(j))
}
