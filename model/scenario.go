package model

import "time"

type ScenarioConfig struct {
	Simulation SimulationIE `yaml:"simulation"`

	Rncs   []RncIE   `yaml:"rncs"`
	Nodebs []NodebIE `yaml:"nodebs"`
	Ues    []UeIE    `yaml:"ues"`

	Logger LoggerIE `yaml:"logger"`
}

type SimulationIE struct {
	Duration    time.Duration `yaml:"duration"`
	MetricsPort int           `yaml:"metricsPort"`

	Latency LatencyIE `yaml:"latency"`
}

type LatencyIE struct {
	Iub time.Duration `yaml:"iub"`
	Iu  time.Duration `yaml:"iu"`
	Iur time.Duration `yaml:"iur"`
	Uu  time.Duration `yaml:"uu"`
}

type NodebIE struct {
	NodebId uint32   `yaml:"nodebId"`
	RncId   uint32   `yaml:"rncId"`
	Cells   []CellIE `yaml:"cells"`
}

type CellIE struct {
	CellId                uint32 `yaml:"cellId"`
	PrimaryScramblingCode uint16 `yaml:"primaryScramblingCode"`
}

type UeIE struct {
	UeId       uint32        `yaml:"ueId"`
	StartAt    time.Duration `yaml:"startAt"`
	CampCellId uint32        `yaml:"campCellId"`
	ReleaseAt  time.Duration `yaml:"releaseAt"`

	MeasurementPeriod time.Duration   `yaml:"measurementPeriod"`
	Tracks            []SignalTrackIE `yaml:"tracks"`

	Rabs []RabIE `yaml:"rabs"`
}

type SignalTrackIE struct {
	CellId uint32          `yaml:"cellId"`
	Points []SignalPointIE `yaml:"points"`
}

type SignalPointIE struct {
	At  time.Duration `yaml:"at"`
	Dbm float64       `yaml:"dbm"`
}

type RabIE struct {
	RabId        uint8         `yaml:"rabId"`
	At           time.Duration `yaml:"at"`
	Domain       string        `yaml:"domain"`
	TrafficClass string        `yaml:"trafficClass"`
	UlRate       uint32        `yaml:"ulRate"`
	DlRate       uint32        `yaml:"dlRate"`
	ReleaseAt    time.Duration `yaml:"releaseAt"`
}
