// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package comms

import "xrplink.org/xrplink/xrp"

// log is the comms logger, disabled by default.
var log = xrp.Disabled

// UseLogger sets the logger for the comms package.
func UseLogger(logger xrp.Logger) {
	log = logger
}
