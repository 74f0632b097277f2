package at

const (
	// Terminal Control
	CRLF = "\r\n"
	EOL  = "\r"

	// Response Codes
	OK       = "OK"
	ERROR    = "ERROR"
	Connect  = "CONNECT"
	CmeError = "+CME ERROR: "

	// Information responses
	RespOperator     = "+COPS:"
	RespRegistration = "+CEREG: "
	RespAttach       = "+CGATT:"
	RespAddress      = "+CGPADDR:"
	RespSignal       = "+CSQ:"
	RespSignalExt    = "+CESQ:"
)

// Commands issued during bring-up.
const (
	CmdAt           = "AT"
	CmdFactoryReset = "AT&F"
	CmdFullFunction = "AT+CFUN=1"
	CmdNumericError = "AT+CMEE=1"

	CmdOperatorQuery = "AT+COPS?"
	CmdOperatorAuto  = "AT+COPS=0,0"
	CmdOperatorFmt   = `AT+COPS=1,2,"%s"`

	CmdRegNotifyOff = "AT+CEREG=0"
	CmdRegNotifyLoc = "AT+CEREG=2"
	CmdRegQuery     = "AT+CEREG?"

	CmdPDPContextFmt = `AT+CGDCONT=1,"IP","%s"`
	CmdAttach        = "AT+CGATT=1"
	CmdAttachQuery   = "AT+CGATT?"
	CmdAddress       = "AT+CGPADDR"
	CmdDialPPP       = "ATD*99#"

	CmdSignal    = "AT+CSQ"
	CmdSignalExt = "AT+CESQ"

	CmdManufacturer = "AT+CGMI"
	CmdModel        = "AT+CGMM"
	CmdRevision     = "AT+CGMR"
	CmdIMEI         = "AT+CGSN"
	CmdIMSI         = "AT+CIMI"

	CmdMuxGeneric = "AT+CMUX=0"
	CmdMuxFmt     = "AT+CMUX=0,0,5,%d"
	// CmdMuxSrvPortFmt pins control, PPP and AT to DLCI 0, %d and %d on
	// SIMCom LTE parts before the CMUX request.
	CmdMuxSrvPortFmt = "AT+CMUXSRVPORT=0,0;+CMUXSRVPORT=%d,1;+CMUXSRVPORT=%d,1;+CMUX=0,0,5,%d"
)
