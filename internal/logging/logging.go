package logging

import (
	"io"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for the log file.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup points the standard logger and gin's writers at stdout, and also at a
// rotating file when path is set. The returned closer releases the file.
func Setup(path string) (io.Closer, error) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if path == "" {
		log.SetOutput(os.Stdout)
		gin.DefaultWriter = os.Stdout
		gin.DefaultErrorWriter = os.Stderr
		return nopCloser{}, nil
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
		Compress:   true,
	}
	// Open eagerly so a bad path fails at startup rather than on first write.
	if _, err := file.Write(nil); err != nil {
		return nil, err
	}

	w := io.MultiWriter(os.Stdout, file)
	log.SetOutput(w)
	gin.DefaultWriter = w
	gin.DefaultErrorWriter = io.MultiWriter(os.Stderr, file)
	return file, nil
}
