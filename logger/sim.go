package logger

import (
	loggergo "github.com/Alonza0314/logger-go/v2"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
	loggergoUtil "github.com/Alonza0314/logger-go/v2/util"
)

type SimLogger struct {
	*loggergo.Logger

	CfgLog   loggergoModel.LoggerInterface
	SimLog   loggergoModel.LoggerInterface
	NodebLog loggergoModel.LoggerInterface
	CnLog    loggergoModel.LoggerInterface
	UeLog    loggergoModel.LoggerInterface
}

func NewSimLogger(level loggergoUtil.LogLevelString, filePath string, debugMode bool) SimLogger {
	logger := loggergo.NewLogger(filePath, debugMode)
	logger.SetLevel(level)

	return SimLogger{
		Logger: logger,

		CfgLog:   logger.WithTags(SIM_TAG, CONFIG_TAG),
		SimLog:   logger.WithTags(SIM_TAG, SIM_TAG),
		NodebLog: logger.WithTags(SIM_TAG, NODEB_TAG),
		CnLog:    logger.WithTags(SIM_TAG, CN_TAG),
		UeLog:    logger.WithTags(SIM_TAG, UE_TAG),
	}
}
