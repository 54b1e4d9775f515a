/*
Package ports defines the driven ports (interfaces) of the domain detection engine.

The engine never aligns, stores, or renders anything itself. These interfaces decouple
the resolution core from the collaborators that do, so the same session can run against
a local alignment binary, an in-memory fixture, or a shared cache cluster.

# Key Interfaces

  - LibraryLoader: Loads the library of known structural domains (e.g., from a file, Loam or Memory).
  - Aligner: Runs the external sequence-alignment search for one chain.
  - HitCache: Caches alignment results per library version and chain sequence.
  - DistributedLocker: Prevents duplicate concurrent searches across replicas.
  - PeptideBuilder / MutationScanner: Downstream consumers of certified assignments.
*/
package ports
