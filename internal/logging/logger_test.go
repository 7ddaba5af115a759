package logging

import "testing"

type recording struct {
	lines []string
}

func (r *recording) Debug(msg string, kv ...interface{}) { r.lines = append(r.lines, "debug:"+msg) }
func (r *recording) Info(msg string, kv ...interface{})  { r.lines = append(r.lines, "info:"+msg) }
func (r *recording) Warn(msg string, kv ...interface{})  { r.lines = append(r.lines, "warn:"+msg) }
func (r *recording) Error(msg string, kv ...interface{}) { r.lines = append(r.lines, "error:"+msg) }

func TestOrNoopPassesThroughNonNil(t *testing.T) {
	r := &recording{}
	l := OrNoop(r)
	l.Info("hello")
	if len(r.lines) != 1 || r.lines[0] != "info:hello" {
		t.Errorf("lines = %v, want [info:hello]", r.lines)
	}
}

func TestOrNoopSubstitutesNil(t *testing.T) {
	l := OrNoop(nil)
	if l != Noop {
		t.Error("OrNoop(nil) should return the shared Noop logger")
	}
	// Must not panic.
	l.Debug("ignored")
	l.Warn("ignored")
	l.Error("ignored")
}
