package model

import "github.com/free5gc/openapi/models"

type PlmnIdIE struct {
	Mcc string `yaml:"mcc"`
	Mnc string `yaml:"mnc"`
}

func (p PlmnIdIE) ToModels() models.PlmnId {
	return models.PlmnId{
		Mcc: p.Mcc,
		Mnc: p.Mnc,
	}
}
