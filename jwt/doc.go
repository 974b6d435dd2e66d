// Package jwt issues and verifies the short-lived access tokens handed out
// once a visitor reaches the authenticated login stage.
package jwt
