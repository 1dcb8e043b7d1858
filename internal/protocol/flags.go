package protocol

// Transaction flags valid on every transaction type.
const (
	TfFullyCanonicalSig uint32 = 0x80000000
	TfUniversal                = TfFullyCanonicalSig
	TfUniversalMask            = ^TfUniversal
)

// Payment flags.
const (
	TfNoRippleDirect uint32 = 0x00010000
	TfPartialPayment uint32 = 0x00020000
	TfLimitQuality   uint32 = 0x00040000
	TfPaymentMask           = ^(TfUniversal | TfPartialPayment | TfLimitQuality | TfNoRippleDirect)
)

// AccountSet transaction flags.
const (
	TfRequireDestTag  uint32 = 0x00010000
	TfOptionalDestTag uint32 = 0x00020000
	TfRequireAuth     uint32 = 0x00040000
	TfOptionalAuth    uint32 = 0x00080000
	TfDisallowXRP     uint32 = 0x00100000
	TfAllowXRP        uint32 = 0x00200000
)

// TfAccountSetMask rejects flags AccountSet does not define.
const TfAccountSetMask = ^(TfUniversal | TfRequireDestTag | TfOptionalDestTag | TfRequireAuth | TfOptionalAuth | TfDisallowXRP | TfAllowXRP)

// AccountSet SetFlag/ClearFlag values.
const (
	AsfRequireDest   uint32 = 1
	AsfRequireAuth   uint32 = 2
	AsfDisallowXRP   uint32 = 3
	AsfDisableMaster uint32 = 4
	AsfAccountTxnID  uint32 = 5
	AsfNoFreeze      uint32 = 6
	AsfGlobalFreeze  uint32 = 7
	AsfDefaultRipple uint32 = 8
	AsfDepositAuth   uint32 = 9
)

// AccountRoot ledger flags.
const (
	LsfPasswordSpent  uint32 = 0x00010000
	LsfRequireDestTag uint32 = 0x00020000
	LsfRequireAuth    uint32 = 0x00040000
	LsfDisallowXRP    uint32 = 0x00080000
	LsfDisableMaster  uint32 = 0x00100000
	LsfNoFreeze       uint32 = 0x00200000
	LsfGlobalFreeze   uint32 = 0x00400000
	LsfDefaultRipple  uint32 = 0x00800000
	LsfDepositAuth    uint32 = 0x01000000
)
