// Package airdrop runs Merkle committed token distributions.
//
// An epoch commits to a Merkle root over (index, recipient, amount) leaves.
// Recipients claim by presenting their leaf and proof. Each index can be
// claimed once, the claim is recorded as a single bit in a paged bitmap and
// is only kept if the payout succeeds.
//
// Epochs and pages are addressed by program derived addresses. Every stored
// record carries the bump it was derived with, so a record found at a path
// can be checked against the coordinates it claims to have.
package airdrop
