package constant

// for RNC
const (
	MAX_RAB = 8

	SRB_RB_ID        uint8 = 1
	FIRST_RAB_RB_ID  uint8 = 5
	SRB_LOGICAL_CHAN       = 4

	MAX_LOGICAL_CHANNEL   = 32
	MAX_TRANSPORT_CHANNEL = 32

	SRB_BIT_RATE uint32 = 3400

	MAX_UL_BEARER_RATE uint32 = 384000
	MAX_DL_BEARER_RATE uint32 = 2048000

	MAX_CELL_TRANSPORT_CHANNEL = 256

	RLC_PDU_SIZE = 336
)

// for code tree
const (
	CHIP_RATE = 3840000

	DL_MAX_SPREADING_FACTOR = 512
	UL_MAX_SPREADING_FACTOR = 256
	DL_MIN_SPREADING_FACTOR = 4
	UL_MIN_SPREADING_FACTOR = 4

	DL_BITS_PER_SYMBOL = 2
	UL_BITS_PER_SYMBOL = 1

	MAX_CODES_PER_BEARER = 3

	COMMON_CHANNEL_SPREADING_FACTOR = 256
	COMMON_CHANNEL_CODES            = 2

	SHARED_CHANNEL_SPREADING_FACTOR = 16
)

// for id generators
const (
	MAX_TRANSACTION_ID = 65535
	MAX_TEID           = 65535
)

// for Iur
const (
	IUR_ENVELOPE_UE_ID_UB   = 4294967295
	IUR_ENVELOPE_CELL_ID_UB = 268435455
)

// for simulation
const (
	RADIO_LINK_FAILURE_DBM      = -115.0
	DEFAULT_MEASUREMENT_PERIOD  = 500 // ms
	REGISTRATION_NAS_PDU        = "\x05\x41"
	REGISTRATION_ACCEPT_NAS_PDU = "\x05\x42"
)
