package build

import "strings"

var (
	Version = "dev"
	AppName = "Rollbuf"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}
