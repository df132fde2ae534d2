package poplod

import (
	"fmt"
	"time"
)

// LogCategory categorizes a message logged through a Context.
type LogCategory int

const (
	LogProgress LogCategory = 1 + iota // A progress log entry.
	LogWarning                         // A warning log entry.
	LogError                           // An error log entry.
)

// TimerLabel identifies one of the engine's named timer slots.
type TimerLabel int

const (
	TimerCharacterize TimerLabel = iota // Time spent in Characterize.
	TimerCacheWrite                     // Time spent writing the cache.
	TimerCacheRead                      // Time spent reading the cache.
	TimerSetLevel                       // Time spent in (*LoD).SetLevel.
	maxTimers
)

const maxMessages = 1000

// Context carries logging and timing instrumentation through the engine's
// blocking operations (Characterize, Cache, (*LoD).SetLevel). It has no
// effect on the results it merely observes, and is safe to share across
// operations invoked from the same goroutine.
//
// Modeled on recast.BuildContext: a self-contained, non-pluggable sink
// that stores messages and accumulates per-label timers.
type Context struct {
	logEnabled   bool
	timerEnabled bool

	startTime [maxTimers]time.Time
	accTime   [maxTimers]time.Duration

	messages    [maxMessages]string
	numMessages int
}

// NewContext returns a Context with logging and timers enabled according to
// state.
func NewContext(state bool) *Context {
	return &Context{logEnabled: state, timerEnabled: state}
}

// EnableLog enables or disables logging.
func (ctx *Context) EnableLog(state bool) { ctx.logEnabled = state }

// EnableTimer enables or disables the performance timers.
func (ctx *Context) EnableTimer(state bool) { ctx.timerEnabled = state }

// ResetLog clears all log entries.
func (ctx *Context) ResetLog() {
	if ctx.logEnabled {
		ctx.numMessages = 0
	}
}

// ResetTimers clears all performance timers.
func (ctx *Context) ResetTimers() {
	if ctx.timerEnabled {
		for i := range ctx.accTime {
			ctx.accTime[i] = 0
		}
	}
}

// Log records a formatted message under category, if logging is enabled.
func (ctx *Context) Log(category LogCategory, format string, v ...interface{}) {
	if !ctx.logEnabled || ctx.numMessages >= maxMessages {
		return
	}
	switch category {
	case LogProgress:
		ctx.messages[ctx.numMessages] = "PROG " + fmt.Sprintf(format, v...)
	case LogWarning:
		ctx.messages[ctx.numMessages] = "WARN " + fmt.Sprintf(format, v...)
	case LogError:
		ctx.messages[ctx.numMessages] = "ERR " + fmt.Sprintf(format, v...)
	}
	ctx.numMessages++
}

func (ctx *Context) Progressf(format string, v ...interface{}) { ctx.Log(LogProgress, format, v...) }
func (ctx *Context) Warningf(format string, v ...interface{})  { ctx.Log(LogWarning, format, v...) }
func (ctx *Context) Errorf(format string, v ...interface{})    { ctx.Log(LogError, format, v...) }

// DumpLog prints the accumulated log to stdout, prefixed by a formatted
// header.
func (ctx *Context) DumpLog(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	for i := 0; i < ctx.numMessages; i++ {
		fmt.Println(ctx.messages[i])
	}
}

// LogCount returns the number of messages currently recorded.
func (ctx *Context) LogCount() int { return ctx.numMessages }

// LogText returns the i-th recorded message.
func (ctx *Context) LogText(i int) string { return ctx.messages[i] }

// StartTimer starts the timer identified by label.
func (ctx *Context) StartTimer(label TimerLabel) {
	if ctx.timerEnabled {
		ctx.startTime[label] = time.Now()
	}
}

// StopTimer stops the timer identified by label and accumulates the
// elapsed duration.
func (ctx *Context) StopTimer(label TimerLabel) {
	if ctx.timerEnabled {
		ctx.accTime[label] += time.Since(ctx.startTime[label])
	}
}

// AccumulatedTime returns the total accumulated duration of the timer
// identified by label.
func (ctx *Context) AccumulatedTime(label TimerLabel) time.Duration {
	if !ctx.timerEnabled {
		return 0
	}
	return ctx.accTime[label]
}
