// Package models defines the domain entities and persistence contracts for the Encore music school.
//
// Persistent entities, each backed by a table and a repository:
//   - [User] : login accounts with a [Role] (admin or user), credentials or Google provider, verification state
//   - [Student] : student profile with [Instrument], [Grade], [Batch] and [Timing] enums, active flag, optional [User] link
//   - [Attendance] : one present/absent mark per student per day
//   - [Payment] : fee payment or outstanding fee with [PaymentMethod] and [PaymentStatus]
//   - [Expense] : school running cost with [ExpenseCategory] and [ExpenseStatus]
//   - [VerificationToken] : one-time email verification token with an expiry
//
// Every entity implements [Model] and is validated with go-playground/validator struct tags through [Validate],
// which reports per-field messages in a [ValidationError].
//
// The [Repository] interface defines the CRUD contract; list operations take free-form [Criteria] and
// paginated listings return a [PageResult].
//
// Mutations performed on behalf of a form return a [Result], the tagged status object rendered back to the page.
package models
