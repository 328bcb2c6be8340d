/*
Package idempotency makes non-idempotent HTTP mutations (POST, PATCH) safe to
retry. A client sends an opaque key in a request header; the first execution
of a request carrying that key is captured and stored, and any later request
with the same key and the same content is answered from the stored entry
without running the handler again. Reusing a key for a request with different
content is rejected.

Each request goes through a Session:

	Pre   extract key, fingerprint the request, look the key up and either
	      short-circuit (replay, reject, conflict) or let the handler run.
	Post  describe the handler's result, encode it with the fingerprint and
	      write it to the store with an absolute TTL.

Coordinator.Handle wires both phases around a result-producing handler.

Two concurrent first requests with the same key both miss and both execute
unless a cache.Locker is configured with WithLocker, in which case the second
one is answered with 409 while the first is in flight.
*/
package idempotency
