package logger

const (
	CONFIG_TAG = "CONFIG"

	RNC_TAG = "RNC"
	SIM_TAG = "SIM"

	RRC_TAG  = "RRC"
	RAB_TAG  = "RAB"
	CODE_TAG = "CODE"
	HO_TAG   = "HO"

	NBAP_TAG  = "NBAP"
	RANAP_TAG = "RANAP"
	IUR_TAG   = "IUR"

	NODEB_TAG = "NODEB"
	CN_TAG    = "CN"
	UE_TAG    = "UE"
)
