package logger

import (
	loggergo "github.com/Alonza0314/logger-go/v2"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
	loggergoUtil "github.com/Alonza0314/logger-go/v2/util"
)

type RncLogger struct {
	*loggergo.Logger

	CfgLog   loggergoModel.LoggerInterface
	RncLog   loggergoModel.LoggerInterface
	RrcLog   loggergoModel.LoggerInterface
	RabLog   loggergoModel.LoggerInterface
	CodeLog  loggergoModel.LoggerInterface
	HoLog    loggergoModel.LoggerInterface
	NbapLog  loggergoModel.LoggerInterface
	RanapLog loggergoModel.LoggerInterface
	IurLog   loggergoModel.LoggerInterface
}

func NewRncLogger(level loggergoUtil.LogLevelString, filePath string, debugMode bool) RncLogger {
	logger := loggergo.NewLogger(filePath, debugMode)
	logger.SetLevel(level)

	return RncLogger{
		Logger: logger,

		CfgLog:   logger.WithTags(RNC_TAG, CONFIG_TAG),
		RncLog:   logger.WithTags(RNC_TAG, RNC_TAG),
		RrcLog:   logger.WithTags(RNC_TAG, RRC_TAG),
		RabLog:   logger.WithTags(RNC_TAG, RAB_TAG),
		CodeLog:  logger.WithTags(RNC_TAG, CODE_TAG),
		HoLog:    logger.WithTags(RNC_TAG, HO_TAG),
		NbapLog:  logger.WithTags(RNC_TAG, NBAP_TAG),
		RanapLog: logger.WithTags(RNC_TAG, RANAP_TAG),
		IurLog:   logger.WithTags(RNC_TAG, IUR_TAG),
	}
}
