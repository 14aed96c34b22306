// Package services contains stateless domain services for the dispatch core.
//
// StatusNormalizer translates each courier's native status vocabulary into
// the internal closed Status enum. Tables are validated at construction, and
// unknown codes pass through flagged rather than disappearing, so a courier
// introducing a new status string can never cause data loss.
package services
