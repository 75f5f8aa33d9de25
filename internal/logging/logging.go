package logging

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	// stdout is reserved for the report
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
}

// SetOutput redirects log messages, mainly for tests
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// EnableDebugMessages lowers the level to debug
func EnableDebugMessages() {
	log.SetLevel(logrus.DebugLevel)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Info logs an informational message
func Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Success logs the successful end of a step
func Success(format string, args ...interface{}) {
	log.WithField("status", "success").Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// Progress represents a progress bar - used while listing pods namespace by namespace
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a new progress bar writing to stderr
func NewProgress(description string, total int) *Progress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)

	return &Progress{
		bar: bar,
	}
}

// Increment advances the progress bar by one, it is safe for concurrent use
func (p *Progress) Increment() {
	_ = p.bar.Add(1)
}

// Complete completes the progress bar
func (p *Progress) Complete() {
	_ = p.bar.Finish()
}
