package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	defaultLogFile       = "./logs/blockworker.log"
	defaultMaxSizeMB     = 100
	defaultMaxAgeDays    = 7
	logFlags             = log.Ldate | log.Ltime | log.Lmicroseconds
	envLogFile           = "LOGFILE"
	envLogFileMaxSizeMB  = "LOGFILE_MAX_SIZE_MB"
	envLogFileMaxAgeDays = "LOGFILE_MAX_AGE_DAYS"
)

var (
	mu     sync.RWMutex
	logger = log.New(os.Stdout, "", logFlags)
)

// InitWithOutput redirects every category logger to w.
func InitWithOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", logFlags)
}

// InitFileLogger switches output to a rotating file configured from the environment.
func InitFileLogger() *lumberjack.Logger {
	lumberjackLogger := &lumberjack.Logger{
		Filename: getLogFilename(),
		MaxSize:  getEnvInt(envLogFileMaxSizeMB, defaultMaxSizeMB), // megabytes
		MaxAge:   getEnvInt(envLogFileMaxAgeDays, defaultMaxAgeDays),
	}
	InitWithOutput(lumberjackLogger)
	return lumberjackLogger
}

func getLogFilename() string {
	if logFile := os.Getenv(envLogFile); logFile != "" {
		return "./logs/" + logFile
	}
	return defaultLogFile
}

func getEnvInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Printf("invalid value %q for %s, using %d", raw, name, fallback)
		return fallback
	}
	return value
}

func output(level, color, category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	output("INFO", ColorGreen, category, content...)
}

func Error(category string, content ...interface{}) {
	output("ERROR", ColorRed, category, content...)
}

func Warn(category string, content ...interface{}) {
	output("WARN", ColorYellow, category, content...)
}

func Debug(category string, content ...interface{}) {
	output("DEBUG", ColorBlue, category, content...)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}
