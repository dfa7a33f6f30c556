// Package logging provides cascade's centralized logger, built on the
// same arbor library and singleton shape the original service used.
package logging

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"
)

var (
	global arbor.ILogger
	mu     sync.RWMutex
)

// Get returns the process-wide logger. Before Init is called it
// returns a fallback console logger so early startup code always has
// somewhere to write.
func Get() arbor.ILogger {
	mu.RLock()
	if global != nil {
		defer mu.RUnlock()
		return global
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		global = arbor.NewLogger().WithConsoleWriter(consoleWriterConfig())
	}
	return global
}

// Init installs logger as the global singleton, replacing any fallback
// already in use.
func Init(logger arbor.ILogger) {
	mu.Lock()
	defer mu.Unlock()
	global = logger
}

// Options configures Setup.
type Options struct {
	DataDir  string
	ToFile   bool
	ToStdout bool
}

// Setup builds a logger per opts and installs it as the global
// singleton, the way the original service's SetupLogger built one from
// its config file before every other package called Get.
func Setup(opts Options) arbor.ILogger {
	logger := arbor.NewLogger()

	toStdout := opts.ToStdout
	toFile := opts.ToFile
	if !toStdout && !toFile {
		toStdout = true
	}

	if toFile && opts.DataDir != "" {
		logsDir := filepath.Join(opts.DataDir, "logs")
		if err := os.MkdirAll(logsDir, 0o755); err == nil {
			logFile := filepath.Join(logsDir, "cascade.log")
			logger = logger.WithFileWriter(fileWriterConfig(logFile))
		} else {
			toStdout = true
		}
	}

	if toStdout {
		logger = logger.WithConsoleWriter(consoleWriterConfig())
	}

	logger = logger.WithMemoryWriter(writerConfig(models.LogWriterTypeMemory, ""))
	logger = logger.WithLevelFromString("info")

	Init(logger)
	return logger
}

// Stop flushes any remaining context logs before application shutdown.
func Stop() {
	arborcommon.Stop()
}

func consoleWriterConfig() models.WriterConfiguration {
	return writerConfig(models.LogWriterTypeConsole, "")
}

func fileWriterConfig(path string) models.WriterConfiguration {
	return writerConfig(models.LogWriterTypeFile, path)
}

func writerConfig(writerType models.LogWriterType, filename string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             writerType,
		FileName:         filename,
		TimeFormat:       "15:04:05.000",
		OutputType:       models.OutputFormatJSON,
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       5,
	}
}
