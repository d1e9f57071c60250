// Package services holds the shared error taxonomy for external collaborator
// clients plus the clients themselves in subpackages.
//
// Stage implementations wrap every failure with one of the sentinel markers
// so the batch runner can decide whether an item keeps its remaining retry
// budget (ErrExternalTool, ErrTransient) or is failed for good
// (ErrValidation, ErrConfiguration, ErrTerminal).
package services
