// Package twitter implements driven.SocialClient against the Twitter/X v2 API.
//
// All endpoints route through one request primitive that applies bearer
// authentication, proactive throttling, a per-attempt timeout and bounded
// exponential backoff. Payloads are normalised into domain posts with
// missing counters defaulting to zero.
package twitter
