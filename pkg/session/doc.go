/*
Package session hosts many concurrent dialogues.

A Manager keeps each dialogue graph in memory and serializes its turns with a
ref-counted per-dialogue mutex, optionally backed by a ports.DistributedLocker
so several replicas can share one store. Only the turn transcript is persisted;
a dialogue missing from memory, or behind the stored transcript, is rebuilt by
replaying its turns.
*/
package session
