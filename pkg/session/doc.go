/*
Package session orchestrates access to persisted wizard sessions.

Manager serializes store operations per key, locally with reference-counted
mutexes and across replicas with an optional distributed locker. Writer sits on
top of a Manager and turns the wizard's stream of snapshots into ordered,
coalesced background writes.
*/
package session
