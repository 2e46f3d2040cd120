package services

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/yoockh/innkeeper/internal/cache"
)

func nullLogger() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}

func newEngine(t *testing.T) *cache.Engine {
	t.Helper()
	e := cache.NewEngine(cache.EngineConfig{MaxSize: 100, SweepInterval: -1}, nullLogger())
	t.Cleanup(e.Destroy)
	return e
}
