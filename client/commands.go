package nntpclient

import (
	"fmt"
)

// A command describes one logical operation: the line to send, the status
// that means success and whether the reply carries a body.
type command struct {
	name      string
	format    string
	multiline bool
	expect    int
}

// line renders the command without its CRLF.
func (c command) line(args ...any) string {
	return fmt.Sprintf(c.format, args...)
}

var (
	cmdGroup          = command{"GROUP", "GROUP %s", false, 211}
	cmdHead           = command{"HEAD", "HEAD %s", true, 221}
	cmdArticle        = command{"ARTICLE", "ARTICLE %s", true, 220}
	cmdListGroup      = command{"LISTGROUP", "LISTGROUP %s", true, 211}
	cmdOver           = command{"OVER", "OVER %s", true, 224}
	cmdNext           = command{"NEXT", "NEXT", false, 223}
	cmdLast           = command{"LAST", "LAST", false, 223}
	cmdPost           = command{"POST", "POST", false, 340}
	cmdPostData       = command{"POST-DATA", "%s\r\n.", false, 240}
	cmdList           = command{"LIST", "LIST", true, 215}
	cmdOverviewFormat = command{"LIST OVERVIEW.FMT", "LIST OVERVIEW.FMT", true, 215}
	cmdXOver          = command{"XOVER", "XOVER %s", true, 224}
	cmdNewNews        = command{"NEWNEWS", "NEWNEWS %s %s GMT", true, 230}
	cmdNewGroups      = command{"NEWGROUPS", "NEWGROUPS %s GMT", true, 231}
	cmdStat           = command{"STAT", "STAT %s", false, 223}
	cmdQuit           = command{"QUIT", "QUIT", false, 205}
)

// newsDate formats t the way NEWNEWS and NEWGROUPS expect.
const newsDate = "20060102 150405"

func rangeArg(from, to int64) string {
	if to <= 0 {
		return fmt.Sprintf("%d-", from)
	}
	return fmt.Sprintf("%d-%d", from, to)
}
