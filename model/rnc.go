package model

import "time"

type RncConfig struct {
	Rnc    RncIE    `yaml:"rnc"`
	Logger LoggerIE `yaml:"logger"`
}

type RncIE struct {
	RncId  uint32   `yaml:"rncId"`
	PlmnId PlmnIdIE `yaml:"plmnId"`

	Admission AdmissionIE `yaml:"admission"`
	Handover  HandoverIE  `yaml:"handover"`
	Timer     TimerIE     `yaml:"timer"`
	CodePlan  CodePlanIE  `yaml:"codePlan"`
}

// AdmissionIE rates are in bit/s.
type AdmissionIE struct {
	UlCapacity    uint32  `yaml:"ulCapacity"`
	DlCapacity    uint32  `yaml:"dlCapacity"`
	LoadThreshold float64 `yaml:"loadThreshold"`

	SharedCapacity uint32  `yaml:"sharedCapacity"`
	SharedOverhead float64 `yaml:"sharedOverhead"`

	UeUlCapacity uint32 `yaml:"ueUlCapacity"`
}

// HandoverIE values are in dB.
type HandoverIE struct {
	MaxActiveSet      int     `yaml:"maxActiveSet"`
	Threshold         float64 `yaml:"threshold"`
	Hysteresis        float64 `yaml:"hysteresis"`
	ReplaceHysteresis float64 `yaml:"replaceHysteresis"`
}

type TimerIE struct {
	ConnectionSetupGuard time.Duration `yaml:"connectionSetupGuard"`
	MeasurementLiveness  time.Duration `yaml:"measurementLiveness"`
	AnnouncePeriod       time.Duration `yaml:"announcePeriod"`
}

type CodePlanIE struct {
	CodingMultiplier   float64 `yaml:"codingMultiplier"`
	MaxCodesPerBearer  int     `yaml:"maxCodesPerBearer"`
	HsdpaEnabled       bool    `yaml:"hsdpaEnabled"`
	SharedChannelCodes int     `yaml:"sharedChannelCodes"`
}

func (r *RncIE) ApplyDefaults() {
	if r.PlmnId.Mcc == "" {
		r.PlmnId = PlmnIdIE{Mcc: "208", Mnc: "93"}
	}

	if r.Admission.UlCapacity == 0 {
		r.Admission.UlCapacity = 2000000
	}
	if r.Admission.DlCapacity == 0 {
		r.Admission.DlCapacity = 2000000
	}
	if r.Admission.LoadThreshold == 0 {
		r.Admission.LoadThreshold = 0.75
	}
	if r.Admission.SharedCapacity == 0 {
		r.Admission.SharedCapacity = 3600000
	}
	if r.Admission.SharedOverhead == 0 {
		r.Admission.SharedOverhead = 1.2
	}
	if r.Admission.UeUlCapacity == 0 {
		r.Admission.UeUlCapacity = 384000
	}

	if r.Handover.MaxActiveSet == 0 {
		r.Handover.MaxActiveSet = 3
	}
	if r.Handover.Threshold == 0 {
		r.Handover.Threshold = 3
	}
	if r.Handover.Hysteresis == 0 {
		r.Handover.Hysteresis = 1
	}
	if r.Handover.ReplaceHysteresis == 0 {
		r.Handover.ReplaceHysteresis = 1
	}

	if r.Timer.ConnectionSetupGuard == 0 {
		r.Timer.ConnectionSetupGuard = 5 * time.Second
	}
	if r.Timer.MeasurementLiveness == 0 {
		r.Timer.MeasurementLiveness = 3 * time.Second
	}
	if r.Timer.AnnouncePeriod == 0 {
		r.Timer.AnnouncePeriod = 10 * time.Second
	}

	if r.CodePlan.CodingMultiplier == 0 {
		r.CodePlan.CodingMultiplier = 2
	}
	if r.CodePlan.MaxCodesPerBearer == 0 {
		r.CodePlan.MaxCodesPerBearer = 3
	}
	if r.CodePlan.SharedChannelCodes == 0 {
		r.CodePlan.SharedChannelCodes = 5
	}
}
