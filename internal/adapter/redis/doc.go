// Package redis implements server-side session storage on Redis.
//
// SessionStore satisfies gorilla/sessions' Store: the browser cookie carries only
// a signed session id, and the session values (the serialized list collection
// and flash slots) live under a Redis key that expires with the session.
// Every command passes through MetricsHook and CircuitBreakerHook.
package redis
