// Package auth issues and verifies time-bound agent identity tokens and
// transit signatures using a keyed message authentication code.
//
// A token is the text encoding
//
//	subject|expiry|signature
//
// where expiry is an absolute Unix timestamp in seconds and signature is the
// hex-encoded MAC over "subject|expiry". Tokens cannot be revoked; expiry is
// the only way a token stops verifying.
//
// The Authenticator holds only the secret key, the MAC algorithm and a clock,
// so it is safe for concurrent use.
package auth
