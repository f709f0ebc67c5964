/*
Package domain contains the core models and rules of the guide wizard.

It defines what a guide looks like (steps and typed fields), what the user has
answered so far, how those answers are validated, and the persisted session
snapshot that allows a wizard to be resumed. The package is kept pure: no I/O,
no persistence, no transport.

# Key Entities

  - Guide: a server-defined, ordered sequence of steps.
  - Step: one page of the wizard, holding zero or more fields.
  - Field: one typed input, optionally required.
  - Answers: the user's accumulated input across all steps.
  - Session: the resumable snapshot (current step, answers, last save).
  - ValidationErrors: per-field error codes produced by ValidateStep.
*/
package domain
