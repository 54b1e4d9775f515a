/*
Package session implements the annotation session lifecycle and the session registry.

A Session owns the chains, hits and resolved assignments of one editor invocation and
walks them through INIT, LIBRARY_LOADED, HITS_LOADED, RESOLVED and CERTIFIED. Operations
are synchronous to the caller; per-chain work fans out internally and is joined before
the state advances, so no partial state is ever observable.

The Manager keeps sessions addressable by ID for long-running hosts (HTTP, MCP) and
serializes access per ID, optionally across replicas through a distributed locker.
*/
package session
