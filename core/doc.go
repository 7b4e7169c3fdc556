// Package core contains the canonical onboarding domain contracts,
// entities, and shared runtime wiring. Lower-level adapters must depend
// on this package; core must not depend on transport-specific or
// provider-specific adapters.
package core
