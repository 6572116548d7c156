package rnc

import "fmt"

type RncId uint32

type NodebId uint32

type CellId uint32

type UeId uint32

type Direction int

const (
	Uplink Direction = iota
	Downlink
)

func (d Direction) String() string {
	return enumName([]string{"UL", "DL"}, "Direction", int(d))
}

// CnDomain is ordered by queue priority, CS first.
type CnDomain int

const (
	DomainCs CnDomain = iota
	DomainPs
)

func (d CnDomain) String() string {
	return enumName([]string{"CS", "PS"}, "CnDomain", int(d))
}

func ParseCnDomain(s string) (CnDomain, error) {
	switch s {
	case "cs", "CS":
		return DomainCs, nil
	case "ps", "PS":
		return DomainPs, nil
	}
	return DomainPs, fmt.Errorf("unknown cn domain %q", s)
}

// TrafficClass is ordered by queue priority, conversational first.
type TrafficClass int

const (
	Conversational TrafficClass = iota
	Streaming
	Interactive
	Background
)

func (c TrafficClass) String() string {
	return enumName([]string{"Conversational", "Streaming", "Interactive", "Background"}, "TrafficClass", int(c))
}

func ParseTrafficClass(s string) (TrafficClass, error) {
	switch s {
	case "conversational":
		return Conversational, nil
	case "streaming":
		return Streaming, nil
	case "interactive":
		return Interactive, nil
	case "background":
		return Background, nil
	}
	return Background, fmt.Errorf("unknown traffic class %q", s)
}

type RlcMode int

const (
	RlcTransparent RlcMode = iota
	RlcUnacknowledged
	RlcAcknowledged
)

func (m RlcMode) String() string {
	return enumName([]string{"TM", "UM", "AM"}, "RlcMode", int(m))
}

type RrcState int

const (
	RrcIdle RrcState = iota
	RrcConnected
)

func (s RrcState) String() string {
	return enumName([]string{"Idle", "Connected"}, "RrcState", int(s))
}

type RrcSubstate int

const (
	CampedNormally RrcSubstate = iota
	CellDch
)

func (s RrcSubstate) String() string {
	return enumName([]string{"CampedNormally", "CellDch"}, "RrcSubstate", int(s))
}

type Membership int

const (
	Monitored Membership = iota
	ActiveSet
	MonitoredToActive
	ActiveToMonitored
)

func (m Membership) String() string {
	return enumName([]string{"Monitored", "ActiveSet", "MonitoredToActive", "ActiveToMonitored"}, "Membership", int(m))
}

// QosParams rates are in bit/s.
type QosParams struct {
	TrafficClass      TrafficClass
	MaxBitRate        uint32
	GuaranteedBitRate uint32
}

type Cause int

const (
	CauseNone Cause = iota
	CauseCapacity
	CauseUnsupportedQos
	CauseNoFreeSlot
	CauseUnknownUe
	CauseNodebRejected
	CauseUeRejected
	CauseRadioLinkFailure
	CauseGuardExpiry
	CauseNormalRelease
	CauseStaleState
	CauseInvariantViolation
	CauseLowerLayerError
)

func (c Cause) String() string {
	return enumName([]string{
		"None",
		"Capacity",
		"UnsupportedQos",
		"NoFreeSlot",
		"UnknownUe",
		"NodebRejected",
		"UeRejected",
		"RadioLinkFailure",
		"GuardExpiry",
		"NormalRelease",
		"StaleState",
		"InvariantViolation",
		"LowerLayerError",
	}, "Cause", int(c))
}

func enumName(names []string, typeName string, value int) string {
	if value < 0 || value >= len(names) {
		return fmt.Sprintf("%s(%d)", typeName, value)
	}
	return names[value]
}
