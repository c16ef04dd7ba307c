// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"xrplink.org/xrplink/client/comms"
	"xrplink.org/xrplink/client/db"
	"xrplink.org/xrplink/xrp"
)

// log is the core logger, disabled by default.
var log = xrp.Disabled

// UseLogger sets the logger for the core package.
func UseLogger(logger xrp.Logger) {
	log = logger
}

// UseLoggerMaker hands out subsystem loggers to the client packages.
func UseLoggerMaker(lm *xrp.LoggerMaker) {
	UseLogger(lm.Logger("CORE"))
	comms.UseLogger(lm.Logger("COMMS"))
	db.UseLogger(lm.Logger("DB"))
}
