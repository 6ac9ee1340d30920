/*
Package session serializes and persists the turns of tick story conversations.

The Manager guarantees at most one in-flight turn per session: an in-process
mutex per session id, optionally backed by a distributed lock when several
replicas share the same store. Each saved session is stamped with a higher
version and a later update time.
*/
package session
