package indexer

import "errors"

var ErrInvalidCron = errors.New("indexer: invalid cron expression")
