// Package gitops drives the git binary through the lifecycle steps an
// extension clone goes through: availability probing, shallow single-branch
// clones, and fetch/checkout/pull synchronization of an existing checkout.
package gitops
