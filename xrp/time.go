// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package xrp

import "time"

// rippleEpochOffset is the Unix timestamp of the ripple epoch, 2000-01-01
// 00:00:00 UTC. Ledger timestamps (FinishAfter, CancelAfter, close times) are
// seconds since this epoch, not the Unix epoch.
const rippleEpochOffset int64 = 946684800

// ToRippleTime converts a time.Time to seconds since the ripple epoch. Times
// before the epoch clamp to zero.
func ToRippleTime(t time.Time) uint32 {
	secs := t.Unix() - rippleEpochOffset
	if secs < 0 {
		return 0
	}
	return uint32(secs)
}

// FromRippleTime converts seconds since the ripple epoch to a UTC time.Time.
func FromRippleTime(secs uint32) time.Time {
	return time.Unix(int64(secs)+rippleEpochOffset, 0).UTC()
}
