package ter

type info struct {
	token string
	human string
}

var (
	infos   = make(map[Code]info)
	byToken = make(map[string]Code)
)

func def(v int16, token, human string) Code {
	c := Code{v: v}
	infos[c] = info{token: token, human: human}
	byToken[token] = c
	return c
}

// Local errors.
var (
	TelLocalError                   = def(-399, "telLOCAL_ERROR", "Local failure.")
	TelBadDomain                    = def(-398, "telBAD_DOMAIN", "Domain too long.")
	TelBadPublicKey                 = def(-396, "telBAD_PUBLIC_KEY", "Public key is not valid.")
	TelFailedProcessing             = def(-395, "telFAILED_PROCESSING", "Failed to correctly process transaction.")
	TelInsufFeeP                    = def(-394, "telINSUF_FEE_P", "Fee insufficient.")
	TelNoDstPartial                 = def(-393, "telNO_DST_PARTIAL", "Partial payment to create account not allowed.")
	TelCanNotQueue                  = def(-392, "telCAN_NOT_QUEUE", "Can not queue at this time.")
	TelWrongNetwork                 = def(-386, "telWRONG_NETWORK", "Transaction specifies a Network ID that differs from that of the local node.")
	TelRequiresNetworkID            = def(-385, "telREQUIRES_NETWORK_ID", "Transactions submitted to this node/network must include a correct NetworkID field.")
	TelNetworkIDMakesTxNonCanonical = def(-384, "telNETWORK_ID_MAKES_TX_NON_CANONICAL", "Transactions submitted to this node/network must NOT include a NetworkID field.")
)

// Malformed transactions.
var (
	TemMalformed          = def(-299, "temMALFORMED", "Malformed transaction.")
	TemBadAmount          = def(-298, "temBAD_AMOUNT", "Can only send positive amounts.")
	TemBadExpiration      = def(-296, "temBAD_EXPIRATION", "Malformed: Bad expiration.")
	TemBadFee             = def(-295, "temBAD_FEE", "Invalid fee, negative or not XRP.")
	TemBadRegKey          = def(-289, "temBAD_REGKEY", "Malformed: Regular key cannot be same as master key.")
	TemBadSendXRPLimit    = def(-288, "temBAD_SEND_XRP_LIMIT", "Malformed: Limit quality is not allowed for XRP to XRP.")
	TemBadSendXRPMax      = def(-287, "temBAD_SEND_XRP_MAX", "Malformed: Send max is not allowed for XRP to XRP.")
	TemBadSendXRPNoDirect = def(-286, "temBAD_SEND_XRP_NO_DIRECT", "Malformed: No Ripple direct is not allowed for XRP to XRP.")
	TemBadSendXRPPartial  = def(-285, "temBAD_SEND_XRP_PARTIAL", "Malformed: Partial payment is not allowed for XRP to XRP.")
	TemBadSequence        = def(-283, "temBAD_SEQUENCE", "Malformed: Sequence is not in the past.")
	TemBadSignature       = def(-282, "temBAD_SIGNATURE", "Malformed: Bad signature.")
	TemBadSrcAccount      = def(-281, "temBAD_SRC_ACCOUNT", "Malformed: Bad source account.")
	TemBadTransferRate    = def(-280, "temBAD_TRANSFER_RATE", "Malformed: Transfer rate must be >= 1.0 and <= 2.0")
	TemDstIsSrc           = def(-279, "temDST_IS_SRC", "Destination may not be source.")
	TemDstNeeded          = def(-278, "temDST_NEEDED", "Destination not specified.")
	TemInvalid            = def(-277, "temINVALID", "The transaction is ill-formed.")
	TemInvalidFlag        = def(-276, "temINVALID_FLAG", "The transaction has an invalid flag.")
	TemRedundant          = def(-275, "temREDUNDANT", "The transaction is redundant.")
	TemDisabled           = def(-273, "temDISABLED", "The transaction requires logic that is currently disabled.")
	TemInvalidAccountID   = def(-268, "temINVALID_ACCOUNT_ID", "Malformed: A field contains an invalid account ID.")
	TemInvalidCount       = def(-266, "temINVALID_COUNT", "Malformed: Count field outside valid range.")
	TemUnknown            = def(-264, "temUNKNOWN", "The transaction requires logic that is not implemented yet.")
	TemSeqAndTicket       = def(-263, "temSEQ_AND_TICKET", "Transaction contains a TicketSequence and a non-zero Sequence.")
)

// Failures that claim no fee.
var (
	TefFailure        = def(-199, "tefFAILURE", "Failed to apply.")
	TefAlready        = def(-198, "tefALREADY", "The exact transaction was already in this ledger.")
	TefBadAuth        = def(-196, "tefBAD_AUTH", "Transaction's public key is not authorized.")
	TefBadLedger      = def(-195, "tefBAD_LEDGER", "Ledger in unexpected state.")
	TefException      = def(-193, "tefEXCEPTION", "Unexpected program state.")
	TefInternal       = def(-192, "tefINTERNAL", "Internal error.")
	TefPastSeq        = def(-190, "tefPAST_SEQ", "This sequence number has already passed.")
	TefWrongPrior     = def(-189, "tefWRONG_PRIOR", "This previous transaction does not match.")
	TefMasterDisabled = def(-188, "tefMASTER_DISABLED", "Master key is disabled.")
	TefMaxLedger      = def(-187, "tefMAX_LEDGER", "Ledger sequence too high.")
	TefBadAuthMaster  = def(-183, "tefBAD_AUTH_MASTER", "Auth for unclaimed account needs correct master key.")
	TefNoTicket       = def(-180, "tefNO_TICKET", "Ticket is not in ledger.")
)

// Retryable results.
var (
	TerRetry     = def(-99, "terRETRY", "Retry transaction.")
	TerInsufFeeB = def(-97, "terINSUF_FEE_B", "Account balance can't pay fee.")
	TerNoAccount = def(-96, "terNO_ACCOUNT", "The source account does not exist.")
	TerPreSeq    = def(-92, "terPRE_SEQ", "Missing/inapplicable prior transaction.")
	TerQueued    = def(-89, "terQUEUED", "Held until escalated fee drops.")
	TerPreTicket = def(-88, "terPRE_TICKET", "Ticket is not yet in ledger.")
)

// Success is tesSUCCESS.
var Success = def(0, "tesSUCCESS", "The transaction was applied. Only final in a validated ledger.")

// Fee-claiming failures.
var (
	TecClaim               = def(100, "tecCLAIM", "Fee claimed. Sequence used. No action.")
	TecUnfundedPayment     = def(104, "tecUNFUNDED_PAYMENT", "Insufficient XRP balance to send.")
	TecFailedProcessing    = def(105, "tecFAILED_PROCESSING", "Failed to correctly process transaction.")
	TecDirFull             = def(121, "tecDIR_FULL", "Can not add entry to full directory.")
	TecNoDst               = def(124, "tecNO_DST", "Destination does not exist. Send XRP to create it.")
	TecNoDstInsufXRP       = def(125, "tecNO_DST_INSUF_XRP", "Destination does not exist. Too little XRP sent to create it.")
	TecNoAlternativeKey    = def(130, "tecNO_ALTERNATIVE_KEY", "The operation would remove the ability to sign transactions with the account.")
	TecInsuffFee           = def(136, "tecINSUFF_FEE", "Insufficient balance to pay fee.")
	TecNoTarget            = def(138, "tecNO_TARGET", "Target account does not exist.")
	TecNoPermission        = def(139, "tecNO_PERMISSION", "No permission to perform requested operation.")
	TecNoEntry             = def(140, "tecNO_ENTRY", "No matching entry found.")
	TecInsufficientReserve = def(141, "tecINSUFFICIENT_RESERVE", "Insufficient reserve to complete requested operation.")
	TecNeedMasterKey       = def(142, "tecNEED_MASTER_KEY", "The operation requires the use of the Master Key.")
	TecDstTagNeeded        = def(143, "tecDST_TAG_NEEDED", "A destination tag is required.")
	TecInternal            = def(144, "tecINTERNAL", "An internal error has occurred during processing.")
	TecExpired             = def(148, "tecEXPIRED", "Expiration time is passed.")
	TecDuplicate           = def(149, "tecDUPLICATE", "Ledger object already exists.")
)
