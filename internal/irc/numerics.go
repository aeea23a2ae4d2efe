package irc

// Numeric replies handled by the session and its users.
const (
	RplWelcome        = "001"
	RplISupport       = "005"
	RplNamReply       = "353"
	RplEndOfNames     = "366"
	RplBanList        = "367"
	RplEndOfBanList   = "368"
	RplQuietList      = "728"
	RplEndOfQuietList = "729"

	ErrNicknameInUse  = "433"
	ErrChannelIsFull  = "471"
	ErrInviteOnlyChan = "473"
	ErrBannedFromChan = "474"
	ErrBadChannelKey  = "475"
	ErrNeedReggedNick = "477"
	ErrSecureOnlyChan = "480"

	RplLoggedIn    = "900"
	RplSASLSuccess = "903"
	ErrSASLFail    = "904"
	ErrSASLTooLong = "905"
	ErrSASLAborted = "906"
	ErrSASLAlready = "907"
	RplSASLMechs   = "908"
)

// joinErrors lists the replies that end a join attempt unsuccessfully.
var joinErrors = map[string]struct{}{
	ErrChannelIsFull:  {},
	ErrInviteOnlyChan: {},
	ErrBannedFromChan: {},
	ErrBadChannelKey:  {},
	ErrNeedReggedNick: {},
	ErrSecureOnlyChan: {},
}
