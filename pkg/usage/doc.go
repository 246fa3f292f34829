// Package usage meters monthly AI-generation usage against plan quotas and
// performs calendar-boundary resets.
//
// Resets are lazy by design: there is no scheduler, so every read and write
// path runs ResetIfNeeded first. The reset compares year+month tuples, so
// it always lands on the first usage after a month boundary regardless of
// the exact day of month.
package usage
