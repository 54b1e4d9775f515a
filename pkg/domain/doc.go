/*
Package domain contains the core models of the domain detection engine.

It defines the entities that flow through the annotation pipeline: the chains handed
over by the editor, the candidate hits produced by the alignment collaborator, the scored
hits, and the resolved domain assignments and gaps. This package is kept pure and free
of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Chain: an immutable amino-acid sequence (heavy chain, light chain, ...).
  - CandidateHit: a raw alignment match between a chain region and a library domain.
  - ScoredHit: a candidate hit with its significance regime and rank.
  - DomainAssignment: the final, non-overlapping interval attributed to a domain.
  - Gap: an unassigned interval longer than the configured tolerance.
  - Config: the resolution policy (boundary policy, thresholds, solver switches).
  - SessionState: the lifecycle of an annotation session.

All positions are 0-based and intervals are half-open: [Start, End).
*/
package domain
