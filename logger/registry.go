package logger

import "sync"

var (
	mu     sync.RWMutex
	global *Logger
	named  = map[string]*Logger{}
)

// SetGlobalLogger replaces the global logger. Loggers handed out by Get
// before the call keep writing to the old one.
func SetGlobalLogger(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
	clear(named)
}

// GetGlobalLogger returns the global logger, an info level console logger
// on stderr until SetGlobalLogger is called.
func GetGlobalLogger() *Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		cfg := &Config{}
		cfg.ApplyDefaults()
		global = New(cfg, "")
	}
	return global
}

// Get returns the global logger tagged with component name. Repeated calls
// return the same logger until the global logger is replaced.
func Get(name string) *Logger {
	mu.RLock()
	l, ok := named[name]
	mu.RUnlock()
	if ok {
		return l
	}

	l = GetGlobalLogger().WithComponent(name)
	mu.Lock()
	defer mu.Unlock()
	if cached, ok := named[name]; ok {
		return cached
	}
	named[name] = l
	return l
}

func Debug(msg string, fields ...map[string]any) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]any)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]any)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]any) { GetGlobalLogger().Error(msg, fields...) }
