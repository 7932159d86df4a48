package core

import "fmt"

const (
	IssuesLink        = "https://github.com/samihalawa/gemini-image-video-mcp/issues"
	BugReportTemplate = "\n\n[NOTE]This is most likely a bug in gemini-mcp, please file an issue at %s"
)

func BugReportMessage() string {
	return fmt.Sprintf(BugReportTemplate, IssuesLink)
}
