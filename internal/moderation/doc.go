// Package moderation classifies chat messages against the link-posting and
// offensive-language policies. Both checks are pure functions of the message
// text; enforcement lives in the dispatch package.
package moderation
