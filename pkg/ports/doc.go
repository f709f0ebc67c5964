/*
Package ports defines the driven ports (interfaces) of the guide wizard.

These interfaces decouple the engine from the backend services and the storage
used to resume sessions, so adapters can be swapped in production and in tests.

# Key Interfaces

  - GuideDirectory: fetches guide definitions by ID.
  - FileUploader: stores a file and returns a reference to it.
  - ApplicationSubmitter: accepts a completed application and returns a tracking ID.
  - SessionStore: persists in-progress sessions for resume.
  - DistributedLocker: coordinates session access across replicas.
*/
package ports
