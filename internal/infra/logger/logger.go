// Package logger — централизованная обёртка над zap для всех бинарей проекта
// (crawler, channelctl, searchcli). Держит глобальный экземпляр с динамическим
// уровнем (zap.AtomicLevel), консольный encoder для stdout и, опционально,
// JSON-core с ротацией файла через lumberjack. Потокобезопасна.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// mu защищает глобальное состояние логгера от одновременных изменений.
	mu sync.Mutex
	// log хранит текущий экземпляр zap.Logger, используемый во всём приложении.
	log *zap.Logger
	// logLevel управляет динамическим уровнем без пересоздания ядра.
	logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	// fileCore — дополнительное ядро для записи в файл; nil, если файл не настроен.
	fileCore zapcore.Core
)

// FileConfig описывает параметры файлового логирования с ротацией.
// Пустой Path означает «файл не используется».
type FileConfig struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// defaultEncoderConfig формирует консольный encoder с цветами и коротким caller.
// Формат времени фиксирован (YYYY-MM-DD HH:MM:SS).
func defaultEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// parseLevel приводит строку к zapcore.Level; неизвестные значения дают Info.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// rebuildLoggerLocked пересоздаёт глобальный логгер с текущими настройками.
// Вызывающий обязан удерживать mu. AddCallerSkip(1) скрывает обёртки logger.*
// в стеке вызовов. Предыдущий логгер перед заменой сбрасывает буферы.
func rebuildLoggerLocked() {
	encoder := zapcore.NewConsoleEncoder(defaultEncoderConfig())
	stdout := zapcore.Lock(zapcore.AddSync(os.Stdout))
	core := zapcore.NewCore(encoder, stdout, logLevel)
	if fileCore != nil {
		core = zapcore.NewTee(core, fileCore)
	}
	if log != nil {
		_ = log.Sync()
	}
	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1),
		zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(os.Stderr))))
}

// Init инициализирует глобальный логгер и задаёт уровень консольного вывода.
// Допустимые уровни: debug, info (по умолчанию), warn, error.
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()

	logLevel.SetLevel(parseLevel(level))
	rebuildLoggerLocked()
}

// EnableFile подключает файловый sink с ротацией (lumberjack) и собственным
// уровнем. Формат — JSON, удобный для машинной обработки. Пустой Path — no-op.
func EnableFile(cfg FileConfig) {
	if strings.TrimSpace(cfg.Path) == "" {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	encCfg := defaultEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder // без ANSI-цветов в файле
	fileCore = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), writer, parseLevel(cfg.Level))
	rebuildLoggerLocked()
}

// Logger возвращает текущий zap.Logger, лениво создавая его при первом обращении.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if log == nil {
		rebuildLoggerLocked()
	}
	return log
}

// Sync сбрасывает буферы логгера. Вызывается перед выходом из процесса.
func Sync() {
	_ = Logger().Sync()
}

// Debug пишет структурированное сообщение уровня Debug.
func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }

// Info пишет структурированное сообщение уровня Info.
func Info(msg string, fields ...zap.Field) { Logger().Info(msg, fields...) }

// Warn пишет структурированное предупреждение уровня Warn.
func Warn(msg string, fields ...zap.Field) { Logger().Warn(msg, fields...) }

// Error пишет структурированное сообщение об ошибке уровня Error.
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }

// Fatal пишет сообщение уровня Fatal и завершает процесс.
func Fatal(msg string, fields ...zap.Field) {
	Logger().Fatal(msg, fields...)
}

// Debugf форматирует сообщение через fmt.Sprintf. Для горячих путей
// предпочтительны структурированные поля.
func Debugf(msg string, a ...any) { Logger().Debug(fmt.Sprintf(msg, a...)) }

// Infof форматирует сообщение через fmt.Sprintf.
func Infof(msg string, a ...any) { Logger().Info(fmt.Sprintf(msg, a...)) }

// Warnf форматирует сообщение через fmt.Sprintf.
func Warnf(msg string, a ...any) { Logger().Warn(fmt.Sprintf(msg, a...)) }

// Errorf форматирует сообщение через fmt.Sprintf.
func Errorf(msg string, a ...any) { Logger().Error(fmt.Sprintf(msg, a...)) }
