package logger

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLogFile = "logs/p2pshare.log"

var (
	Log   *zap.Logger
	Sugar *zap.SugaredLogger

	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	path := strings.TrimSpace(os.Getenv("P2PSHARE_LOG_FILE"))
	if path == "" {
		path = defaultLogFile
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		panic(err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006/01/02 15:04:05"))
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	levelStr := strings.TrimSpace(os.Getenv("P2PSHARE_LOG_LEVEL"))
	if levelStr == "" {
		levelStr = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	}
	if levelStr != "" {
		_ = SetLevel(levelStr)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(file),
		level,
	)

	opts := []zap.Option{zap.AddCaller()}
	// DPanic only panics in development mode
	if os.Getenv("P2PSHARE_DEV") != "" {
		opts = append(opts, zap.Development())
	}

	Log = zap.New(core, opts...)
	Sugar = Log.Sugar()
}

// SetLevel changes the level of the global logger at runtime.
func SetLevel(l string) error {
	return level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(l))))
}
