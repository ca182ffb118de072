package zk

import (
	szk "github.com/samuel/go-zookeeper/zk"
	log "github.com/sirupsen/logrus"
)

// DebugLogger forwards zookeeper session logs to logrus at the debug level, tagged with the
// "zk" prefix shown by the prefixed formatter.
type DebugLogger struct{}

var _ szk.Logger = (*DebugLogger)(nil)

func (l *DebugLogger) Printf(format string, args ...interface{}) {
	log.WithField("prefix", "zk").Debugf(format, args...)
}
