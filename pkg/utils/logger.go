package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLogFile is where the rotating workspace log lives.
const DefaultLogFile = ".director/director.log"

// Logger represents a workspace logger. A nil *Logger discards everything.
type Logger struct {
	logger        *log.Logger
	console       io.Writer
	quiet         bool
	jsonMode      bool
	correlationID string
}

var (
	globalLogger *Logger
	once         sync.Once
)

// GetLogger returns the singleton instance of Logger.
// It initializes the logger with a file handler that rotates logs.
// When quiet is set, process steps are written to the log file only.
func GetLogger(quiet bool) *Logger {
	once.Do(func() {
		logFile := &lumberjack.Logger{
			Filename:   logFilePath(),
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		globalLogger = &Logger{
			logger:  log.New(logFile, "", log.LstdFlags),
			console: os.Stdout,
		}
	})
	globalLogger.quiet = quiet
	if os.Getenv("DIRECTOR_JSON_LOGS") == "1" {
		globalLogger.jsonMode = true
	}
	if cid := os.Getenv("DIRECTOR_CORRELATION_ID"); cid != "" {
		globalLogger.correlationID = cid
	}
	return globalLogger
}

func logFilePath() string {
	if p := os.Getenv("DIRECTOR_LOG_FILE"); p != "" {
		return p
	}
	return filepath.FromSlash(DefaultLogFile)
}

// NewLogger builds a non-singleton logger over arbitrary writers, for tests
// and embedding.
func NewLogger(file, console io.Writer) *Logger {
	return &Logger{logger: log.New(file, "", log.LstdFlags), console: console}
}

// SetCorrelationID tags subsequent JSON records.
func (w *Logger) SetCorrelationID(id string) {
	w.correlationID = id
}

// Close closes the logger resources.
func (w *Logger) Close() error {
	if logFile, ok := w.logger.Writer().(*lumberjack.Logger); ok {
		return logFile.Close()
	}
	return nil
}

// LogProcessStep logs the current step in a process and echoes it to the console.
func (w *Logger) LogProcessStep(step string) {
	if w == nil {
		return
	}
	if w.jsonMode {
		w.encode(map[string]any{"level": "info", "step": step, "cid": w.correlationID})
	} else {
		w.logger.Printf("Process Step: %s", step)
	}
	if !w.quiet && w.console != nil {
		fmt.Fprintln(w.console, step)
	}
}

// Log logs a general message only to the log file.
func (w *Logger) Log(message string) {
	if w == nil {
		return
	}
	if w.jsonMode {
		w.encode(map[string]any{"level": "info", "msg": message, "cid": w.correlationID})
		return
	}
	w.logger.Print(message)
}

// Logf logs a formatted general message only to the log file.
func (w *Logger) Logf(format string, v ...interface{}) {
	if w == nil {
		return
	}
	if w.jsonMode {
		w.Log(fmt.Sprintf(format, v...))
		return
	}
	w.logger.Printf(format, v...)
}

func (w *Logger) LogError(err error) {
	if w == nil || err == nil {
		return
	}
	if w.jsonMode {
		w.encode(map[string]any{"level": "error", "error": err.Error(), "cid": w.correlationID})
		return
	}
	w.logger.Printf("Error: %s", err)
}

func (w *Logger) encode(rec map[string]any) {
	_ = json.NewEncoder(w.logger.Writer()).Encode(rec)
}
