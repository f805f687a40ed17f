package nntp

// Success and continuation codes, RFC 3977 unless noted.
var SuccessText = map[int]string{
	200: "Service available, posting allowed",
	201: "Service available, posting prohibited",
	205: "Connection closing",
	211: "Group selected",
	215: "Information follows",
	220: "Article follows",
	221: "Article headers follow",
	222: "Article body follows",
	223: "Article exists and selected",
	224: "Overview information follows",
	225: "Headers follow",
	230: "List of new articles follows",
	231: "List of new newsgroups follows",
	240: "Article received OK",
	340: "Send article to be posted",
}

// Failure codes.
var ErrorText = map[int]string{
	400: "Service not available or no longer available",
	401: "The server is in the wrong mode",
	403: "Internal fault or problem preventing action being taken",
	411: "No such newsgroup",
	412: "No newsgroup selected",
	420: "Current article number is invalid",
	421: "No next article in this group",
	422: "No previous article in this group",
	423: "No article with that number or in that range",
	430: "No article with that message-id",
	435: "Article not wanted",
	440: "Posting not permitted",
	441: "Posting failed",
	480: "Command unavailable until the client has authenticated itself",
	481: "Authentication failed/rejected", // RFC 4643
	483: "Command unavailable until suitable privacy has been arranged",
	500: "Unknown command",
	501: "Syntax error",
	502: "Command not permitted",
	503: "Feature not supported",
	504: "Invalid base64-encoded argument",
}

const (
	unknownStatusText      = "Unknown status"
	unrecognizedStatusText = "Unrecognized status code"
)

// StatusText returns the registry text for code and whether it was found.
func StatusText(code int) (string, bool) {
	if s, ok := SuccessText[code]; ok {
		return s, true
	}
	s, ok := ErrorText[code]
	return s, ok
}

// IsSuccess reports whether code is in the 2xx range.
func IsSuccess(code int) bool {
	return code >= 200 && code <= 299
}

// dynamicSummary lists the codes whose status line carries data the caller
// needs, so the summary is taken from the line instead of the table.
func dynamicSummary(code int) bool {
	return code == 211 || code == 222
}
