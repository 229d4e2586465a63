// Package models defines the core domain models for splitsync.
//
// # Ledger Models
//
// Records produced by the backend and cached by clients:
//   - Group: a set of members sharing expenses, with an invite code
//   - Expense: a payment by one member, divided into Splits
//   - Settlement: a real-world transfer that reduces outstanding debt
//
// # Derived Models
//
// Recomputed on demand from the cached records, never persisted:
//   - Balance: a member's net position in a group
//   - SimplifiedDebt: one suggested transfer that helps zero the group
//
// # Design Principles
//
// 1. **Exact money**: amounts are fixed-point hundredths (Amount), never floats
// 2. **Avoid circular references**: use ID strings instead of pointers for relationships
// 3. **Wire independence**: backend field names live in package wire, not here
package models
