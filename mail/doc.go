// Package mail renders the account notification emails and delivers them
// over SMTP. Delivery is best effort: callers log and audit failures but
// never surface them to the end user.
package mail
