package logx

import (
	"fmt"
	"io"
	"log"
	"os"
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

// FileConfig controls log rotation. Zero values fall back to the defaults
// below so the logger is usable before Init runs (tests, client commands).
type FileConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxAgeDays int
}

const (
	defaultFilename  = "./logs/tinycoin.log"
	defaultMaxSizeMB = 100
	defaultMaxAge    = 14
)

var (
	mu     sync.Mutex
	logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

// Init switches logging to a rotated file, echoing to stderr so
// interactive runs still see output.
func Init(cfg FileConfig) {
	if cfg.Filename == "" {
		cfg.Filename = defaultFilename
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = defaultMaxSizeMB
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = defaultMaxAge
	}

	rotated := &lumberjack.Logger{
		Filename: cfg.Filename,
		MaxSize:  cfg.MaxSizeMB,  // megabytes
		MaxAge:   cfg.MaxAgeDays, // days
	}

	mu.Lock()
	defer mu.Unlock()
	logger = log.New(io.MultiWriter(rotated, os.Stderr), "", log.Ldate|log.Ltime|log.Lmicroseconds)
}

func Info(category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[INFO][%s]%s", ColorGreen, category, ColorReset)
	printf("%s: %s", coloredCategory, message)
}

func Error(category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[ERROR][%s]%s", ColorRed, category, ColorReset)
	printf("%s: %s", coloredCategory, message)
}

func Warn(category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[WARN][%s]%s", ColorYellow, category, ColorReset)
	printf("%s: %s", coloredCategory, message)
}

func Debug(category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[DEBUG][%s]%s", ColorBlue, category, ColorReset)
	printf("%s: %s", coloredCategory, message)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}

func printf(format string, args ...interface{}) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Printf(format, args...)
}
