package constants

import "time"

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// DefaultWechatBaseURL is the production endpoint of the template
	// message API; overridable for tests and mocks.
	DefaultWechatBaseURL = "https://api.weixin.qq.com"

	StableTokenPath     = "/cgi-bin/stable_token"
	TemplateSendPath    = "/cgi-bin/message/template/send"
	ProviderSuccessMsg  = "ok"
	RecipientSeparator  = "|"
	TimestampFormat     = "2006-01-02 15:04:05"
	TimestampZoneOffset = 8 * 60 * 60
)

const (
	MaxTitleFields   = 5
	MaxContentFields = 10
)

// Path segments that must never be treated as a test-page token.
var ReservedPaths = map[string]struct{}{
	"wxsend":     {},
	"index.html": {},
	"health":     {},
	"metrics":    {},
}
