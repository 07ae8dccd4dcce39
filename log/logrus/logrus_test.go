package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/gridcache"
)

func TestEntries(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.InfoLevel)
	l := New(base)

	l.Debug("dropped", nil)
	l.Info("using cache", gridcache.Fields{"cache": "authz"})
	l.Warn("stop failed", gridcache.Fields{"err": errors.New("boom")})

	if n := len(hook.AllEntries()); n != 2 {
		t.Fatalf("got %d entries, want 2", n)
	}
	first := hook.AllEntries()[0]
	if first.Data["cache"] != "authz" || first.Data["component"] != "gridcache" {
		t.Fatalf("fields missing: %v", first.Data)
	}
	last := hook.LastEntry()
	if last.Level != logrus.WarnLevel {
		t.Fatalf("level=%v", last.Level)
	}
	if err, _ := last.Data[logrus.ErrorKey].(error); err == nil || err.Error() != "boom" {
		t.Fatalf("error not attached via WithError: %v", last.Data)
	}
}
