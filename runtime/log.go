package runtime

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("nativecall.runtime")

// ConfigureLogging installs the simple commonlog backend at the configured
// verbosity, writing to stderr unless a file is named.
func ConfigureLogging(c LogConfig) {
	var path *string
	if c.File != "" {
		file := c.File
		path = &file
	}
	commonlog.Configure(c.Verbosity, path)
}
