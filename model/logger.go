package model

import (
	"fmt"
	"strings"

	loggergoUtil "github.com/Alonza0314/logger-go/v2/util"
)

type LoggerIE struct {
	Level     loggergoUtil.LogLevelString `yaml:"level"`
	FilePath  string                      `yaml:"filePath"`
	DebugMode bool                        `yaml:"debugMode"`
}

// ApplyDefaults lowercases the level, falls back to info and logs to stdout
// when no file is given.
func (l *LoggerIE) ApplyDefaults() {
	l.Level = loggergoUtil.LogLevelString(strings.ToLower(strings.TrimSpace(string(l.Level))))
	if l.Level == "" {
		l.Level = loggergoUtil.LEVEL_STRING_INFO
	}
	if l.FilePath == "" {
		l.DebugMode = true
	}
}

func (l *LoggerIE) Validate() error {
	switch l.Level {
	case loggergoUtil.LEVEL_STRING_ERROR, loggergoUtil.LEVEL_STRING_WARN, loggergoUtil.LEVEL_STRING_INFO,
		loggergoUtil.LEVEL_STRING_DEBUG, loggergoUtil.LEVEL_STRING_TRACE, loggergoUtil.LEVEL_STRING_TEST:
	default:
		return fmt.Errorf("Error logger level %q, expected one of error, warn, info, debug, trace, test", l.Level)
	}
	if !l.DebugMode && l.FilePath == "" {
		return fmt.Errorf("Error logger file path is empty outside debug mode")
	}
	return nil
}
