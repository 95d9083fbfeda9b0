// Package connection keeps a mouse session alive across unplugs.
//
// A Supervisor owns a connect function and an optional health check. When
// the check fails, or the owner reports the session lost, the supervisor
// moves to Reconnecting and retries the connect function with exponential
// backoff until it succeeds or the supervisor is closed.
//
// # Reconnection Strategy
//
//  1. Initial delay: 500 milliseconds
//  2. Each failed attempt doubles the delay
//  3. Maximum delay: 30 seconds
//  4. Reset to the initial delay after a successful connect
//
// Each delay carries up to 20% random jitter so several tools watching the
// same receiver do not retry in lockstep.
package connection
